package parse

import (
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks yields the raw href value of every <a> element in document order.
// Anchors without an href (or with an empty one) are skipped. The document is parsed
// when iteration starts, so each range over the sequence reparses from scratch.
// Malformed markup is tolerated; an unreadable document yields nothing.
func ExtractLinks(html string) iter.Seq[string] {
	return func(yield func(string) bool) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return
		}
		doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, exists := s.Attr("href")
			if !exists || href == "" {
				return true
			}
			return yield(href)
		})
	}
}
