// Command check_pages validates a generated practice-paper PDF. It prints the
// page count and, when the source document is given, checks that every
// subject heading made it into the PDF text.
//
// Usage:
//
//	go run ./cmd/check_pages <paper.pdf> [doc.json|doc.yaml]
package main

import (
	"fmt"
	"os"
	"strings"

	"solveflow/internal/compiler"
	"solveflow/internal/docsource"
	"solveflow/internal/extractor"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: check_pages <paper.pdf> [doc.json|doc.yaml]")
		fmt.Println()
		fmt.Println("This tool validates a generated PDF. It checks:")
		fmt.Println("  - PDF structure and page count")
		fmt.Println("  - Subject headings of the source document (when given)")
		os.Exit(1)
	}

	pdfPath := os.Args[1]
	info, err := compiler.Inspect(pdfPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: valid PDF, %d page(s), %d bytes\n", info.Path, info.PageCount, info.Size)

	if len(os.Args) < 3 {
		return
	}

	doc, err := docsource.Load(os.Args[2])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	text, err := extractor.ReadPaperText(pdfPath, 0)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Typst may break lines anywhere, so compare with whitespace removed.
	flat := strings.ToUpper(strings.Join(strings.Fields(text), ""))
	missing := 0
	for _, s := range doc.Subjects {
		name := strings.ToUpper(strings.Join(strings.Fields(s.Name), ""))
		if strings.Contains(flat, name) {
			fmt.Printf("  ✓ %s (%d question(s))\n", s.Name, len(s.Questions))
		} else {
			fmt.Printf("  ✗ %s not found in PDF text\n", s.Name)
			missing++
		}
	}

	if info.PageCount < 1+len(doc.Subjects) {
		fmt.Printf("Warning: %d page(s) for a cover page and %d subject(s)\n", info.PageCount, len(doc.Subjects))
	}
	if missing > 0 {
		os.Exit(2)
	}
}
