package locator

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// transcriptMarkers identify the concall section heading on a company page.
var transcriptMarkers = []string{"concalls", "con calls"}

// stopKeywords end the forward walk: they mark the headings of the sections
// that follow the concall list on a company page.
var stopKeywords = []string{
	"announcements",
	"annual reports",
	"shareholding",
	"quarters",
	"credit ratings",
}

// sectionStrategy locates the node where the concall section begins. The
// strategies are tried in order; the first hit wins.
type sectionStrategy interface {
	find(doc *html.Node) *html.Node
}

// anchorID matches an element carrying a known id attribute.
type anchorID struct {
	id string
}

func (s anchorID) find(doc *html.Node) *html.Node {
	return findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == s.id
	})
}

// headingText matches any heading whose visible text contains a marker.
type headingText struct {
	markers []string
}

func (s headingText) find(doc *html.Node) *html.Node {
	return findNode(doc, func(n *html.Node) bool {
		if !isHeading(n) {
			return false
		}
		text := strings.ToLower(nodeText(n))
		for _, marker := range s.markers {
			if strings.Contains(text, marker) {
				return true
			}
		}
		return false
	})
}

// nestedDocuments handles layouts where the concall list sits under a
// "documents" heading. The search region is bounded by the next h2.
type nestedDocuments struct {
	markers []string
}

func (s nestedDocuments) find(doc *html.Node) *html.Node {
	nodes := flatten(doc)
	start := -1
	for i, n := range nodes {
		if isHeading(n) && strings.Contains(strings.ToLower(nodeText(n)), "documents") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	for _, n := range nodes[start+1:] {
		if n.Type == html.ElementNode && n.DataAtom == atom.H2 {
			break
		}
		if n.Type != html.ElementNode {
			continue
		}
		text := strings.ToLower(nodeText(n))
		for _, marker := range s.markers {
			if strings.Contains(text, marker) {
				return n
			}
		}
	}
	return nil
}

func defaultStrategies() []sectionStrategy {
	return []sectionStrategy{
		anchorID{id: "concalls"},
		headingText{markers: transcriptMarkers},
		nestedDocuments{markers: transcriptMarkers},
	}
}

// flatten returns the document's nodes in document (pre-order) order.
func flatten(doc *html.Node) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		nodes = append(nodes, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nodes
}

func findNode(doc *html.Node, match func(*html.Node) bool) *html.Node {
	if match(doc) {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func isHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func isStopHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.H2, atom.H3:
	default:
		return false
	}
	text := strings.ToLower(nodeText(n))
	for _, kw := range stopKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText collects the visible text of a subtree, script and style excluded.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
