package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"callsense/internal/config"
	"callsense/internal/locator"
)

// maxDownloadBytes caps how much of a remote PDF is buffered. Transcripts run
// a few megabytes at most.
const maxDownloadBytes = 32 << 20

// Remote fetches transcript PDFs over HTTP and extracts their text without
// touching disk.
type Remote struct {
	client    *http.Client
	userAgent string
	minWords  int
}

// NewRemote builds a remote extractor from source configuration.
func NewRemote(src config.Source) *Remote {
	return &Remote{
		client:    &http.Client{Timeout: time.Duration(src.FetchTimeout) * time.Second},
		userAgent: src.UserAgent,
		minWords:  src.MinWords,
	}
}

// Extract downloads the referenced PDF and returns its text. Responses larger
// than the download cap or shorter than the word minimum are rejected.
func (r *Remote) Extract(ctx context.Context, ref locator.Reference) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/pdf,*/*")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", ref.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.URL, err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("fetch %s: response exceeds %d bytes", ref.URL, maxDownloadBytes)
	}

	text, err := pdfText(data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ref.URL, err)
	}
	return newDocument(ref, text, "remote", r.minWords)
}
