package util

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Match any HTML tag
	tagRe = regexp.MustCompile(`<[^>]*>`)

	// Something that is actually markup, not a stray "<" in plain text
	markupRe = regexp.MustCompile(`(?i)</?[a-z][a-z0-9]*(?:\s[^>]*)?/?>`)

	// Match <a href="..."> to extract URLs
	anchorRe = regexp.MustCompile(`(?i)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>`)

	// Match closing </a>
	anchorCloseRe = regexp.MustCompile(`(?i)</a\s*>`)

	// Collapse runs of blank lines into at most two newlines (one blank line)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)

	// Collapse runs of spaces (not newlines) into one
	spacesRe = regexp.MustCompile(`[^\S\n]+`)

	brRe         = regexp.MustCompile(`(?i)<br\s*/?\s*>`)
	blockCloseRe = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|blockquote|pre|table|tr)\s*>`)
	blockOpenRe  = regexp.MustCompile(`(?i)<(?:p|div|h[1-6]|blockquote|pre|table|tr)(?:\s[^>]*)?\s*>`)
	liOpenRe     = regexp.MustCompile(`(?i)<li(?:\s[^>]*)?\s*>`)
	liCloseRe    = regexp.MustCompile(`(?i)</li\s*>`)
	listWrapRe   = regexp.MustCompile(`(?i)</?(?:ul|ol)(?:\s[^>]*)?\s*>`)
)

// HTMLToText converts an event description to readable terminal text.
// Google descriptions are HTML; links become clickable OSC 8 hyperlinks
// with their label cut to width. Pass width <= 0 to keep labels whole.
func HTMLToText(s string, width int) string {
	return convert(s, func(href, label string) string {
		if width > 0 {
			label = TruncateText(label, width)
		}
		return MakeHyperlink(href, label)
	})
}

// PlainText converts a description to text without escape sequences, for
// places that lay text out cell by cell or edit it. A link keeps its label,
// followed by the target when the two differ.
func PlainText(s string) string {
	return convert(s, func(href, label string) string {
		if label == href {
			return href
		}
		return label + " (" + href + ")"
	})
}

func convert(s string, link func(href, label string) string) string {
	if s == "" {
		return s
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	if markupRe.MatchString(s) {
		s = brRe.ReplaceAllString(s, "\n")
		s = blockCloseRe.ReplaceAllString(s, "\n\n")
		s = blockOpenRe.ReplaceAllString(s, "\n")

		// Wrappers go first so they add no newlines; <li> carries the structure.
		s = listWrapRe.ReplaceAllString(s, "")
		s = liOpenRe.ReplaceAllString(s, "\n  • ")
		s = liCloseRe.ReplaceAllString(s, "")

		s = convertLinks(s, link)
		s = tagRe.ReplaceAllString(s, "")
		s = html.UnescapeString(s)
	}

	s = spacesRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "• ") {
			lines[i] = "  " + trimmed
		} else {
			lines[i] = trimmed
		}
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// convertLinks replaces every <a href="url">text</a> with link(url, text).
// Google redirect URLs are unwrapped to the real target first.
func convertLinks(s string, link func(href, label string) string) string {
	for {
		aLoc := anchorRe.FindStringSubmatchIndex(s)
		if aLoc == nil {
			break
		}

		href := s[aLoc[2]:aLoc[3]]
		afterOpen := s[aLoc[1]:]

		closeLoc := anchorCloseRe.FindStringIndex(afterOpen)
		if closeLoc == nil {
			// Malformed: drop the opening tag and move on
			s = s[:aLoc[0]] + s[aLoc[1]:]
			continue
		}

		label := strings.TrimSpace(tagRe.ReplaceAllString(afterOpen[:closeLoc[0]], ""))
		href = unwrapRedirect(html.UnescapeString(href))
		if label == "" {
			label = href
		}

		s = s[:aLoc[0]] + link(href, label) + afterOpen[closeLoc[1]:]
	}
	return s
}

// unwrapRedirect extracts the real URL from Google redirect wrappers
// like https://www.google.com/url?q=REAL_URL&...
func unwrapRedirect(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	if u.Host == "www.google.com" && u.Path == "/url" {
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	}

	return rawURL
}
