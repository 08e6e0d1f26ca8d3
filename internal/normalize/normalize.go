// Package normalize turns raw rendered HTML into the bounded plain text the
// extractors operate on. It is a pure transformation with no failure path:
// malformed input yields empty text, never an error.
package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MaxChars bounds the normalized text passed downstream. Model extractors
// are prompt-size limited, so anything past this is cut with a marker.
const MaxChars = 8000

// TruncationMarker is appended whenever text is cut at MaxChars.
const TruncationMarker = "..."

// Content is the ephemeral normalized form of one fetched page. Text is the
// bounded sample most consumers want; FullText keeps the whole cleaned page
// for the escalation extractor, which builds a maximal-context prompt.
type Content struct {
	Text      string
	FullText  string
	SourceURL string
}

// Truncated reports whether the text was cut at the MaxChars bound.
func (c Content) Truncated() bool {
	return strings.HasSuffix(c.Text, TruncationMarker) && len(c.Text) >= MaxChars
}

// Normalize strips non-content markup from rendered HTML, collapses
// whitespace, and truncates the primary sample to MaxChars.
func Normalize(rawHTML, sourceURL string) Content {
	full := textFromHTML(rawHTML)
	text := full
	if len(text) > MaxChars {
		// Cut on a rune boundary so the sample stays valid UTF-8.
		cut := MaxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + TruncationMarker
	}
	return Content{Text: text, FullText: full, SourceURL: sourceURL}
}

func textFromHTML(input string) string {
	node, err := html.Parse(strings.NewReader(input))
	if err != nil || node == nil {
		return ""
	}
	var b strings.Builder
	collectText(&b, node)
	return collapseWhitespace(b.String())
}

func collectText(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe", "head":
			return
		case "br", "hr", "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "div", "section", "tr":
			b.WriteString("\n")
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li":
			b.WriteString("\n")
		}
	}
}

// collapseWhitespace trims every line, collapses internal runs of spaces,
// and drops empty lines so labeled-field regexes see one field per line.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == ' ' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
