package enrich

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func matchesAny(u string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

// findCanonicalLink ищет на промежуточной странице первую ссылку на канонический документ.
func findCanonicalLink(doc *goquery.Document, pageURL string, patterns []*regexp.Regexp) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	var found string
	doc.Find("link[rel=canonical], a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if candidate := abs.String(); matchesAny(candidate, patterns) {
			found = candidate
			return false
		}
		return true
	})
	return found
}
