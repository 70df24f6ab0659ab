// Package template assembles a complete Typst source file for a practice
// paper: document setup, cover page, subject headers and question cards.
package template

import (
	"embed"
	"strings"
	texttemplate "text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"solveflow/internal/types"
	"solveflow/internal/typst"
)

//go:embed templates/*.typ.tmpl
var templateFS embed.FS

var layout = texttemplate.Must(
	texttemplate.New("layout").
		Option("missingkey=error").
		Funcs(texttemplate.FuncMap{"tile": newTile}).
		ParseFS(templateFS, "templates/*.typ.tmpl"),
)

var upper = cases.Upper(language.Und)

// Option box colours. Correct answers are always green regardless of the
// subject tone.
const (
	correctFill   = "E8F5E9"
	correctStroke = "2E7D32"
	plainFill     = "FAFAFA"
	plainStroke   = "BDBDBD"
)

type documentView struct {
	TitleString    string
	Title          string
	Subtitle       string
	Target         string
	Class          string
	Date           string
	Instructions   string
	Subjects       []subjectView
	TotalQuestions int
	TotalMarks     int
}

type subjectView struct {
	Name          string
	UpperName     string
	Icon          string
	Tone          Tone
	QuestionCount int
	Marks         int
	Questions     []questionView
}

type questionView struct {
	Number     int
	Topic      string
	Marks      int
	Tone       Tone
	Body       string
	Solution   string
	HasOptions bool
	FirstRow   []optionView
	SecondRow  []optionView
}

type optionView struct {
	Key      string
	Text     string
	Fill     string
	Stroke   string
	KeyColor string
}

type tileView struct {
	Label string
	Value string
}

func newTile(label, value string) tileView {
	return tileView{Label: label, Value: value}
}

// Build renders doc as a complete Typst source. Only question text, option
// text and solutions go through the math/markdown pipeline; every other
// field is escaped as literal text.
//
// Build does not validate doc. Missing options, unknown correct keys or
// empty subjects still render, just without the missing parts.
func Build(doc types.Document) string {
	var sb strings.Builder
	if err := layout.ExecuteTemplate(&sb, "document", newDocumentView(doc)); err != nil {
		// The templates are static and the view is fully populated.
		panic("template: render document: " + err.Error())
	}
	return sb.String()
}

func newDocumentView(doc types.Document) documentView {
	v := documentView{
		TitleString:    typst.QuoteString(singleLine(doc.Title)),
		Title:          structural(doc.Title),
		Subtitle:       structural(doc.Subtitle),
		Target:         structural(doc.Target),
		Class:          structural(doc.Class),
		Date:           structural(doc.Date),
		Instructions:   typst.EscapeText(strings.TrimSpace(doc.Instructions)),
		TotalQuestions: doc.QuestionCount(),
		TotalMarks:     doc.TotalMarks(),
	}
	for _, s := range doc.Subjects {
		v.Subjects = append(v.Subjects, newSubjectView(s))
	}
	return v
}

func newSubjectView(s types.Subject) subjectView {
	name := singleLine(s.Name)
	v := subjectView{
		Name:          typst.EscapeText(name),
		UpperName:     typst.EscapeText(upper.String(name)),
		Icon:          structural(s.Icon),
		Tone:          ResolveTone(s.Color),
		QuestionCount: len(s.Questions),
		Marks:         s.TotalMarks(),
	}
	for i, q := range s.Questions {
		v.Questions = append(v.Questions, newQuestionView(q, i+1, v.Tone))
	}
	return v
}

func newQuestionView(q types.Question, number int, tone Tone) questionView {
	v := questionView{
		Number:     number,
		Topic:      structural(q.Topic),
		Marks:      q.Marks,
		Tone:       tone,
		Body:       typst.ToMarkup(q.Text),
		Solution:   typst.ToMarkup(q.Solution),
		HasOptions: len(q.Options) > 0,
	}
	n := len(q.Options)
	for _, opt := range q.Options[:min(2, n)] {
		v.FirstRow = append(v.FirstRow, newOptionView(opt, q.Correct, tone))
	}
	for _, opt := range q.Options[min(2, n):min(4, n)] {
		v.SecondRow = append(v.SecondRow, newOptionView(opt, q.Correct, tone))
	}
	return v
}

func newOptionView(opt types.Option, correct types.OptionKey, tone Tone) optionView {
	v := optionView{
		Key:      structural(string(opt.Key)),
		Text:     typst.ToMarkup(opt.Text),
		Fill:     plainFill,
		Stroke:   plainStroke,
		KeyColor: tone.Accent,
	}
	if opt.Key == correct {
		v.Fill = correctFill
		v.Stroke = correctStroke
		v.KeyColor = correctStroke
	}
	return v
}

// structural escapes a one-line metadata field.
func structural(s string) string {
	return typst.EscapeText(singleLine(s))
}

// singleLine collapses runs of whitespace, including newlines, so a field can
// sit inside a line comment or a string without breaking out of it.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
