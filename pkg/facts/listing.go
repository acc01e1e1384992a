package facts

import (
	"iter"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ListingLinks yields the absolute detail-page URL of every li element on
// the listing page whose class attribute matches itemClass. The href of the
// item's first anchor is resolved against base; items without an href are
// skipped. The document is only walked while the sequence is consumed.
func ListingLinks(doc *goquery.Document, base *url.URL, itemClass *regexp.Regexp) iter.Seq[string] {
	return func(yield func(string) bool) {
		if doc == nil {
			return
		}

		items := doc.Find("li[class]")
		for i := range items.Nodes {
			item := items.Eq(i)
			class, _ := item.Attr("class")
			if !itemClass.MatchString(class) {
				continue
			}

			href, ok := item.Find("a").First().Attr("href")
			href = strings.TrimSpace(href)
			if !ok || href == "" {
				continue
			}

			link, err := resolve(base, href)
			if err != nil {
				continue
			}
			if !yield(link) {
				return
			}
		}
	}
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
