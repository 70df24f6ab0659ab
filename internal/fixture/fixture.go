// Package fixture embeds the demo practice paper used by the sample
// command and by tests.
package fixture

import (
	_ "embed"

	"solveflow/internal/docsource"
	"solveflow/internal/types"
)

//go:embed demo.json
var demoJSON []byte

// DemoJSON returns the raw embedded demo document.
func DemoJSON() []byte {
	out := make([]byte, len(demoJSON))
	copy(out, demoJSON)
	return out
}

// Demo returns a fresh copy of the demo document.
func Demo() *types.Document {
	doc, err := docsource.Parse(demoJSON, docsource.FormatJSON)
	if err != nil {
		panic("fixture: embedded demo document is malformed: " + err.Error())
	}
	return doc
}
