package crawler

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ExtractLinks returns the href of every <a href> in body, resolved to an
// absolute URL, in document order.
//
// Relative references are resolved against <base href> when the document
// declares one, otherwise against pageURL. Empty hrefs and hrefs that cannot
// be parsed are dropped. No filtering or deduplication is performed.
//
// Design decision: We decode the body with x/net/html/charset using the
// response Content-Type (and <meta charset> sniffing) before parsing, so
// URLs containing non-ASCII characters survive pages served in legacy
// encodings.
func ExtractLinks(body io.Reader, contentType, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	utf8Body, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page body: %w", err)
	}

	node, err := html.Parse(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(node)

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		links = append(links, u.String())
	})

	return links, nil
}
