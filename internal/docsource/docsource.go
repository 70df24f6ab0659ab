// Package docsource loads practice-paper documents from JSON or YAML and
// checks them against the upstream schema.
package docsource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"solveflow/internal/logger"
	"solveflow/internal/types"
)

// Format identifies a document encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// RequiredOptions is the number of options every question carries.
const RequiredOptions = 4

// FormatFromPath infers the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", types.NewAppError(types.ErrInvalidInput,
		fmt.Sprintf("unsupported document extension %q (want .json, .yaml or .yml)", filepath.Ext(path)), nil)
}

// Load reads and parses the document at path.
func Load(path string) (*types.Document, error) {
	logger.Debug("loading document", logger.String("path", path))

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewAppError(types.ErrFileNotFound, "document not found", err)
		}
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to read document", err)
	}

	doc, err := Parse(data, format)
	if err != nil {
		return nil, err
	}

	logger.Info("document loaded",
		logger.String("path", path),
		logger.Int("subjects", len(doc.Subjects)),
		logger.Int("questions", doc.QuestionCount()))
	return doc, nil
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*types.Document, error) {
	doc := &types.Document{}

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, doc)
	default:
		return nil, types.NewAppError(types.ErrInvalidInput, fmt.Sprintf("unknown document format %q", format), nil)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, fmt.Sprintf("malformed %s document", format), err)
	}
	return doc, nil
}

// Marshal encodes doc in the given format.
func Marshal(doc *types.Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, types.NewAppError(types.ErrInternal, "failed to encode document", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, types.NewAppError(types.ErrInternal, "failed to encode document", err)
		}
		return data, nil
	}
	return nil, types.NewAppError(types.ErrInvalidInput, fmt.Sprintf("unknown document format %q", format), nil)
}

// Save writes doc to path, choosing the encoding from the extension.
func Save(path string, doc *types.Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(doc, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to write document", err)
	}
	return nil
}

// Violations lists every schema violation in doc, in document order.
func Violations(doc *types.Document) []string {
	var out []string
	if doc == nil {
		return []string{"document is empty"}
	}
	if len(doc.Subjects) == 0 {
		out = append(out, "document has no subjects")
	}

	for si, s := range doc.Subjects {
		where := fmt.Sprintf("subject %d (%s)", si+1, s.Name)
		if len(s.Questions) == 0 {
			out = append(out, where+": has no questions")
		}

		for qi, q := range s.Questions {
			qwhere := fmt.Sprintf("%s question %d", where, qi+1)
			if q.ID != "" {
				qwhere = fmt.Sprintf("%s question %s", where, q.ID)
			}

			if len(q.Options) != RequiredOptions {
				out = append(out, fmt.Sprintf("%s: has %d options, want %d", qwhere, len(q.Options), RequiredOptions))
			}

			seen := make(map[types.OptionKey]bool, len(q.Options))
			for _, o := range q.Options {
				if !o.Key.Valid() {
					out = append(out, fmt.Sprintf("%s: option key %q is not one of A-D", qwhere, o.Key))
					continue
				}
				if seen[o.Key] {
					out = append(out, fmt.Sprintf("%s: option %s appears twice", qwhere, o.Key))
				}
				seen[o.Key] = true
			}

			switch {
			case !q.Correct.Valid():
				out = append(out, fmt.Sprintf("%s: correct key %q is not one of A-D", qwhere, q.Correct))
			case !seen[q.Correct]:
				out = append(out, fmt.Sprintf("%s: correct key %s has no matching option", qwhere, q.Correct))
			}

			if q.Marks < 0 {
				out = append(out, fmt.Sprintf("%s: marks must not be negative, got %d", qwhere, q.Marks))
			}
		}
	}
	return out
}

// Validate returns an INVALID_INPUT error listing every violation, or nil.
func Validate(doc *types.Document) error {
	violations := Violations(doc)
	if len(violations) == 0 {
		return nil
	}
	logger.Warn("document failed validation", logger.Int("violations", len(violations)))
	return types.NewAppErrorWithDetails(types.ErrInvalidInput,
		fmt.Sprintf("document failed validation with %d problem(s)", len(violations)),
		strings.Join(violations, "; "), nil)
}

// Normalize returns a deep copy of doc with every string in Unicode NFC.
func Normalize(doc *types.Document) *types.Document {
	if doc == nil {
		return nil
	}
	nfc := norm.NFC.String

	out := &types.Document{
		Title:        nfc(doc.Title),
		Subtitle:     nfc(doc.Subtitle),
		Target:       nfc(doc.Target),
		Class:        nfc(doc.Class),
		Date:         nfc(doc.Date),
		Instructions: nfc(doc.Instructions),
		Subjects:     make([]types.Subject, len(doc.Subjects)),
	}
	for i, s := range doc.Subjects {
		ns := types.Subject{
			Name:      nfc(s.Name),
			Color:     nfc(s.Color),
			Icon:      nfc(s.Icon),
			Questions: make([]types.Question, len(s.Questions)),
		}
		for j, q := range s.Questions {
			nq := types.Question{
				ID:       nfc(q.ID),
				Topic:    nfc(q.Topic),
				Text:     nfc(q.Text),
				Correct:  types.OptionKey(nfc(string(q.Correct))),
				Marks:    q.Marks,
				Solution: nfc(q.Solution),
			}
			if q.Options != nil {
				nq.Options = make([]types.Option, len(q.Options))
				for k, o := range q.Options {
					nq.Options[k] = types.Option{Key: types.OptionKey(nfc(string(o.Key))), Text: nfc(o.Text)}
				}
			}
			ns.Questions[j] = nq
		}
		out.Subjects[i] = ns
	}
	return out
}
