package util

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	blockEnd = regexp.MustCompile(`(?i)</(p|div|li|h[1-6]|tr|ul|ol)>`)
	lineBr   = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// HTMLToText renders an HTML fragment as plain text, one line per block element.
// Greenhouse serves its content entity-escaped, so the input is unescaped first.
func HTMLToText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if !strings.Contains(fragment, "<") && strings.Contains(fragment, "&lt;") {
		fragment = html.UnescapeString(fragment)
	}
	fragment = lineBr.ReplaceAllString(fragment, "\n")
	fragment = blockEnd.ReplaceAllString(fragment, "$0\n")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CleanText(fragment)
	}
	doc.Find("script, style").Remove()
	return CleanMultiline(doc.Text())
}
