package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"solveflow/internal/logger"
	"solveflow/internal/types"
)

var pdfMagic = []byte("%PDF-")

// ReadPaperText checks that path is a PDF no larger than maxBytes and
// returns its plain text, one block per page. maxBytes <= 0 disables the
// size check.
func ReadPaperText(path string, maxBytes int64) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "", types.NewAppError(types.ErrInvalidInput, "only PDF files are supported", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", types.NewAppError(types.ErrFileNotFound, "paper not found", err)
		}
		return "", types.NewAppError(types.ErrInvalidInput, "cannot access paper", err)
	}
	if info.IsDir() {
		return "", types.NewAppError(types.ErrInvalidInput, "path is a directory, not a PDF", nil)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", types.NewAppErrorWithDetails(types.ErrInvalidInput, "paper is too large",
			fmt.Sprintf("%d bytes exceeds the %d byte limit", info.Size(), maxBytes), nil)
	}

	if err := checkMagic(path); err != nil {
		return "", err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", types.NewAppError(types.ErrInvalidInput, "cannot open PDF", err)
	}
	defer f.Close()

	var sb strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("failed to extract page text", logger.Int("page", i), logger.Err(err))
			continue
		}
		fmt.Fprintf(&sb, "--- Page %d ---\n%s\n", i, strings.TrimSpace(text))
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", types.NewAppError(types.ErrExtract, "PDF has no extractable text (scanned pages are not supported)", nil)
	}

	logger.Info("paper text extracted",
		logger.String("path", path),
		logger.Int("pages", pages),
		logger.Int("chars", len(text)))
	return text, nil
}

func checkMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return types.NewAppError(types.ErrInvalidInput, "cannot open paper", err)
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, pdfMagic) {
		return types.NewAppError(types.ErrInvalidInput, "file is not a PDF", err)
	}
	return nil
}
