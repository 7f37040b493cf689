package reddit

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText flattens rendered reddit markdown into single-spaced text.
func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	root := doc.Find(".md").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	return strings.Join(strings.Fields(root.Text()), " ")
}
