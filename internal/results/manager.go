// Package results keeps documents extracted from question papers so the same
// PDF is not sent to the model twice. Entries are keyed by the MD5 of the
// source PDF.
package results

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"solveflow/internal/docsource"
	"solveflow/internal/logger"
	"solveflow/internal/types"
)

// ExtractionStatus represents the state of one extraction
type ExtractionStatus string

const (
	// StatusExtracting indicates the model call is in flight
	StatusExtracting ExtractionStatus = "extracting"
	// StatusComplete indicates the document was extracted and stored
	StatusComplete ExtractionStatus = "complete"
	// StatusError indicates the last extraction failed
	StatusError ExtractionStatus = "error"
)

const (
	metadataFile = "metadata.json"
	documentFile = "document.json"
)

// PaperInfo represents metadata about an extracted paper
type PaperInfo struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	SourceFileName string           `json:"source_file_name"`
	SourceMD5      string           `json:"source_md5"`
	Status         ExtractionStatus `json:"status"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	Questions      int              `json:"questions"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ResultManager manages extraction results stored in the user's home directory
type ResultManager struct {
	baseDir string
}

// NewResultManager creates a new ResultManager with the specified base directory.
// If baseDir is empty, uses ~/.solveflow/results.
func NewResultManager(baseDir string) (*ResultManager, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(homeDir, ".solveflow", "results")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &ResultManager{baseDir: baseDir}, nil
}

// GetBaseDir returns the base directory for results
func (m *ResultManager) GetBaseDir() string {
	return m.baseDir
}

// IDFromMD5 derives the entry ID from a source hash
func IDFromMD5(md5Hash string) string {
	if len(md5Hash) > 16 {
		return md5Hash[:16]
	}
	return md5Hash
}

// GetPaperDir returns the directory path for an entry
func (m *ResultManager) GetPaperDir(id string) string {
	return filepath.Join(m.baseDir, id)
}

// SavePaperInfo saves entry metadata, creating the entry directory if needed.
func (m *ResultManager) SavePaperInfo(info *PaperInfo) error {
	if info.SourceMD5 == "" {
		return types.NewAppError(types.ErrInvalidInput, "paper info has no source hash", nil)
	}
	info.ID = IDFromMD5(info.SourceMD5)
	info.UpdatedAt = time.Now()

	paperDir := m.GetPaperDir(info.ID)
	if err := os.MkdirAll(paperDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(paperDir, metadataFile), data, 0644)
}

// LoadPaperInfo loads entry metadata
func (m *ResultManager) LoadPaperInfo(id string) (*PaperInfo, error) {
	data, err := os.ReadFile(filepath.Join(m.GetPaperDir(id), metadataFile))
	if err != nil {
		return nil, err
	}

	var info PaperInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListPapers returns every stored entry, newest first
func (m *ResultManager) ListPapers() ([]*PaperInfo, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*PaperInfo{}, nil
		}
		return nil, err
	}

	var papers []*PaperInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := m.LoadPaperInfo(entry.Name())
		if err != nil {
			continue // Skip directories without metadata
		}
		papers = append(papers, info)
	}

	sort.Slice(papers, func(i, j int) bool {
		return papers[i].UpdatedAt.After(papers[j].UpdatedAt)
	})
	return papers, nil
}

// DeletePaper deletes an entry and its stored document
func (m *ResultManager) DeletePaper(id string) error {
	return os.RemoveAll(m.GetPaperDir(id))
}

// UpdatePaperStatus updates the status of an entry
func (m *ResultManager) UpdatePaperStatus(id string, status ExtractionStatus, errorMsg string) error {
	info, err := m.LoadPaperInfo(id)
	if err != nil {
		return err
	}
	info.Status = status
	info.ErrorMessage = errorMsg
	return m.SavePaperInfo(info)
}

// GetDocumentPath returns where the extracted document of an entry lives
func (m *ResultManager) GetDocumentPath(id string) string {
	return filepath.Join(m.GetPaperDir(id), documentFile)
}

// SaveDocument stores doc for the entry and marks it complete.
func (m *ResultManager) SaveDocument(info *PaperInfo, doc *types.Document) error {
	info.Title = doc.Title
	info.Questions = doc.QuestionCount()
	info.Status = StatusComplete
	info.ErrorMessage = ""
	if err := m.SavePaperInfo(info); err != nil {
		return err
	}
	if err := docsource.Save(m.GetDocumentPath(info.ID), doc); err != nil {
		return err
	}
	logger.Debug("extraction stored", logger.String("id", info.ID), logger.String("dir", m.GetPaperDir(info.ID)))
	return nil
}

// LoadDocument loads the stored document of an entry
func (m *ResultManager) LoadDocument(id string) (*types.Document, error) {
	return docsource.Load(m.GetDocumentPath(id))
}

// CalculateFileMD5 calculates the MD5 hash of a file
func CalculateFileMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// FindByMD5 finds an entry by its source hash. It returns nil, nil when no
// entry exists.
func (m *ResultManager) FindByMD5(md5Hash string) (*PaperInfo, error) {
	info, err := m.LoadPaperInfo(IDFromMD5(md5Hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if info.SourceMD5 != md5Hash {
		return nil, nil
	}
	return info, nil
}

// FindComplete returns the finished entry for the file at path, or nil.
func (m *ResultManager) FindComplete(path string) (*PaperInfo, error) {
	md5Hash, err := CalculateFileMD5(path)
	if err != nil {
		return nil, err
	}
	info, err := m.FindByMD5(md5Hash)
	if err != nil || info == nil || info.Status != StatusComplete {
		return nil, err
	}
	return info, nil
}
