package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"callsense/internal/locator"
	"callsense/internal/period"
)

// Local reads an on-disk transcript archive laid out as
// <root>/<entity>/<year>/Transcript/*.pdf.
type Local struct {
	root     string
	minWords int
}

// NewLocal builds a local extractor over the given archive root.
func NewLocal(root string, minWords int) *Local {
	return &Local{root: root, minWords: minWords}
}

// List walks the entity's archive folders and returns a reference per PDF.
// The period comes from the filename, with the year folder as fallback.
func (l *Local) List(entity string) ([]locator.Reference, error) {
	entity = strings.ToUpper(strings.TrimSpace(entity))
	entityDir := filepath.Join(l.root, entity)
	yearDirs, err := os.ReadDir(entityDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", entityDir, err)
	}

	var refs []locator.Reference
	for _, yearDir := range yearDirs {
		if !yearDir.IsDir() {
			continue
		}
		year, err := strconv.Atoi(yearDir.Name())
		if err != nil {
			continue
		}
		transcriptDir := filepath.Join(entityDir, yearDir.Name(), "Transcript")
		files, err := os.ReadDir(transcriptDir)
		if err != nil {
			continue
		}
		for _, file := range files {
			if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".pdf") {
				continue
			}
			refs = append(refs, locator.Reference{
				Entity: entity,
				Path:   filepath.Join(transcriptDir, file.Name()),
				Period: period.FromFilename(file.Name(), year),
			})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// Extract reads the referenced PDF from disk and returns its text.
func (l *Local) Extract(_ context.Context, ref locator.Reference) (*Document, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.Path, err)
	}
	text, err := pdfText(data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ref.Path, err)
	}
	return newDocument(ref, text, "local", l.minWords)
}
