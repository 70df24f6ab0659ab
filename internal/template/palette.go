package template

// Tone is the three-colour set a subject is drawn with. Values are hex
// RGB without the leading '#'.
type Tone struct {
	Accent string
	Light  string
	Dark   string
}

// DefaultColor is used when a subject's colour is missing or unknown.
const DefaultColor = "cyan"

// palette is read-only after init.
var palette = map[string]Tone{
	"cyan":   {Accent: "0277BD", Light: "E3F2FD", Dark: "01579B"},
	"purple": {Accent: "7B1FA2", Light: "F3E5F5", Dark: "4A148C"},
	"green":  {Accent: "2E7D32", Light: "E8F5E9", Dark: "1B5E20"},
	"blue":   {Accent: "1565C0", Light: "E3F2FD", Dark: "0D47A1"},
	"orange": {Accent: "E65100", Light: "FFF3E0", Dark: "BF360C"},
	"red":    {Accent: "C62828", Light: "FFEBEE", Dark: "B71C1C"},
}

// ResolveTone returns the tone for a colour name. Names are matched
// exactly; anything else falls back to DefaultColor.
func ResolveTone(color string) Tone {
	if t, ok := palette[color]; ok {
		return t
	}
	return palette[DefaultColor]
}
