// Package extract turns transcript references into plain text. A remote
// extractor streams PDFs from the document source and parses them in memory;
// a local extractor reads an on-disk transcript archive.
package extract

import (
	"context"
	"errors"
	"fmt"

	"callsense/internal/locator"
	"callsense/internal/textutil"
)

// Extractor turns one transcript reference into a document.
type Extractor interface {
	Extract(ctx context.Context, ref locator.Reference) (*Document, error)
}

// ErrTooShort reports that a document produced less text than the configured
// word minimum. Callers treat it as nothing-to-score rather than a failure.
var ErrTooShort = errors.New("extracted text below word minimum")

// Document is the extracted text of one transcript.
type Document struct {
	Ref    locator.Reference
	Text   string
	Words  int
	Source string
}

func newDocument(ref locator.Reference, text, source string, minWords int) (*Document, error) {
	words := textutil.WordCount(text)
	if words < minWords {
		return nil, fmt.Errorf("%w: %d words, need %d", ErrTooShort, words, minWords)
	}
	return &Document{Ref: ref, Text: text, Words: words, Source: source}, nil
}
