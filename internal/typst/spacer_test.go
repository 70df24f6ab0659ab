package typst

import (
	"math/rand"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpacifyIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"two variables", "kq", "k q"},
		{"three variables", "F = kqQ", "F = k q Q"},
		{"known function", "sin", "sin"},
		{"function call", "sin(theta)", "sin(theta)"},
		{"single letters", "a + b", "a + b"},
		{"dotted identifier", "a dot.op b", "a dot.op b"},
		{"with superscript", "mv^2", "m v^2"},
		{"translated fraction", "frac(mv, 2)", "frac(m v, 2)"},
		{"quoted text", `"speed" v`, `"speed" v`},
		{"quoted run kept", `"kq"`, `"kq"`},
		{"escaped quote in text", `"say \"hi\" ok" ab`, `"say \"hi\" ok" a b`},
		{"unterminated quote", `"abc`, `"abc`},
		{"trailing period", "x.", "x."},
		{"unknown trailing period", "ab.", "a b."},
		{"matrix keywords", `mat(delim: #none, a, b)`, `mat(delim: #none, a, b)`},
		{"zws base", "zws^(14)C", "zws^(14)C"},
		{"subscript word", "v_(max)", "v_(max)"},
		{"unknown subscript", "v_(rms)", "v_(r m s)"},
		{"escaped character", `a \ bc`, `a \ b c`},
		{"digits untouched", "2x + 10y", "2x + 10y"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpacifyIdentifiers(tt.input))
		})
	}
}

func TestKnownIdentifiers_CoverTranslatorOutput(t *testing.T) {
	for cmd, out := range commandTable {
		assert.Equal(t, out, SpacifyIdentifiers(out), "output of \\%s would be split", cmd)
	}
	for _, fn := range wrapperFuncs {
		assert.Equal(t, fn, SpacifyIdentifiers(fn))
	}
	for _, id := range structuralIdents {
		assert.Equal(t, id, SpacifyIdentifiers(id))
	}
}

func TestKnownIdentifiers_Sorted(t *testing.T) {
	ids := KnownIdentifiers()
	require.NotEmpty(t, ids)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
	assert.Contains(t, ids, "frac")
	assert.Contains(t, ids, "arrow.l.double")
}

func TestSpacifyIdentifiers_TranslatedFragments(t *testing.T) {
	for _, frag := range mathFragments {
		translated := TranslateMath(frag)
		spaced := SpacifyIdentifiers(translated)
		// Spacing only ever inserts blanks.
		assert.Equal(t, strings.ReplaceAll(translated, " ", ""), strings.ReplaceAll(spaced, " ", ""), frag)
	}
}

func TestSpacifyIdentifiers_Idempotent_Quick(t *testing.T) {
	f := func(seed int64) bool {
		r := rand.New(rand.NewSource(seed))
		once := SpacifyIdentifiers(TranslateMath(generateMathInput(r)))
		return SpacifyIdentifiers(once) == once
	}

	if err := quick.Check(f, quickConfig()); err != nil {
		t.Error(err)
	}
}
