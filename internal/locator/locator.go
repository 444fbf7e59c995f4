// Package locator discovers earnings-call transcript documents on a company's
// page at the configured source. Discovery is best-effort: a missing section,
// unparseable label, or malformed date yields fewer references, never an
// error.
package locator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"callsense/internal/config"
	"callsense/internal/period"
)

// ErrNotFound reports that the source has no page for the requested entity.
var ErrNotFound = errors.New("entity page not found")

// precedingLabelWindow is how many text-bearing nodes before a link are
// scanned for a "Mon YYYY" label.
const precedingLabelWindow = 10

// Reference identifies one transcript document and the period it covers.
// Remote documents carry a URL, locally archived ones a filesystem path.
type Reference struct {
	Entity string
	URL    string
	Path   string
	Period period.Period
}

// Locator finds transcript references on company pages.
type Locator struct {
	client       *http.Client
	baseURL      string
	userAgent    string
	startYear    int
	endYear      int
	maxLinks     int
	allowedHosts []string
	strategies   []sectionStrategy
}

// New builds a locator from source configuration.
func New(src config.Source) *Locator {
	return &Locator{
		client:       &http.Client{Timeout: time.Duration(src.IndexTimeout) * time.Second},
		baseURL:      strings.TrimRight(src.BaseURL, "/"),
		userAgent:    src.UserAgent,
		startYear:    src.StartYear,
		endYear:      src.EndYear,
		maxLinks:     src.MaxLinks,
		allowedHosts: src.AllowedHosts,
		strategies:   defaultStrategies(),
	}
}

// CompanyPageURL returns the source page for an exchange code.
func (l *Locator) CompanyPageURL(symbol string) string {
	return fmt.Sprintf("%s/company/%s/", l.baseURL, url.PathEscape(strings.ToUpper(symbol)))
}

// Exists probes whether the source has a page for the symbol. It satisfies
// the catalog's validator.
func (l *Locator) Exists(ctx context.Context, symbol string) (bool, error) {
	_, err := l.fetchPage(ctx, symbol)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Discover fetches the entity's page and returns the transcript references
// found in its concall section, deduplicated by absolute URL and restricted
// to the configured year range.
func (l *Locator) Discover(ctx context.Context, symbol string) ([]Reference, error) {
	doc, err := l.fetchPage(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var section *html.Node
	for _, strategy := range l.strategies {
		if section = strategy.find(doc); section != nil {
			break
		}
	}
	if section == nil {
		return nil, nil
	}

	nodes := flatten(doc)
	start := 0
	for i, n := range nodes {
		if n == section {
			start = i
			break
		}
	}

	pageURL, err := url.Parse(l.CompanyPageURL(symbol))
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	var refs []Reference
	seen := make(map[string]struct{})
	candidates := 0
	for i := start + 1; i < len(nodes); i++ {
		n := nodes[i]
		if isStopHeading(n) {
			break
		}
		if n.Type != html.ElementNode || n.DataAtom != atom.A {
			continue
		}
		candidates++
		if candidates > l.maxLinks {
			break
		}

		href := strings.TrimSpace(attr(n, "href"))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			continue
		}
		if !strings.Contains(strings.ToLower(nodeText(n)), "transcript") {
			continue
		}

		p, ok := l.resolvePeriod(nodes, i, href)
		if !ok || p.Year < l.startYear || p.Year > l.endYear {
			continue
		}

		target, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := pageURL.ResolveReference(target)
		if !l.hostAllowed(abs.Host) {
			continue
		}
		key := abs.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		refs = append(refs, Reference{
			Entity: strings.ToUpper(symbol),
			URL:    key,
			Period: p,
		})
	}
	return refs, nil
}

// resolvePeriod scans the preceding text-bearing nodes for a month label,
// then falls back to a date embedded in the href.
func (l *Locator) resolvePeriod(nodes []*html.Node, linkIndex int, href string) (period.Period, bool) {
	scanned := 0
	for i := linkIndex - 1; i >= 0 && scanned < precedingLabelWindow; i-- {
		n := nodes[i]
		if n.Type != html.TextNode {
			continue
		}
		text := strings.TrimSpace(n.Data)
		if text == "" {
			continue
		}
		scanned++
		if p, ok := period.ParseLabel(text); ok {
			return p, true
		}
	}
	return period.FromLocation(href)
}

func (l *Locator) hostAllowed(host string) bool {
	if len(l.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, allowed := range l.allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func (l *Locator) fetchPage(ctx context.Context, symbol string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.CompanyPageURL(symbol), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", req.URL, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", req.URL, err)
	}
	return doc, nil
}
