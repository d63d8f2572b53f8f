package discovery

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkTriple is one hyperlink as seen on the page: its resolved URL, the
// anchor text, and nearby section text used for disambiguation when the
// anchor alone is ambiguous (a bare "download" link under a "PMVG 2023"
// heading). The matcher consumes triples without ever touching HTML.
type LinkTriple struct {
	URL     string
	Anchor  string
	Context string
}

// Anchors on the CMED page sit several wrappers deep inside their paragraph.
const maxContextAscent = 5

const contentRootSelector = "#content-core"

// headingSelector marks the elements that open a new section on the page.
const headingSelector = "h2, h3, h4, h5, strong"

// ExtractTriples parses an HTML document and returns one triple per anchor,
// in document order. Relative hrefs are resolved against baseURL. A parse
// failure is an error; a page with no anchors is simply an empty slice.
func ExtractTriples(baseURL string, body []byte) ([]LinkTriple, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	root := doc.Find(contentRootSelector)
	if root.Length() == 0 {
		root = doc.Selection
	}

	var triples []LinkTriple
	root.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}
		resolved := resolveHref(base, href)
		if resolved == "" {
			return
		}
		triples = append(triples, LinkTriple{
			URL:     resolved,
			Anchor:  squashSpace(sel.Text()),
			Context: linkContext(sel),
		})
	})
	return triples, nil
}

func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// linkContext gathers the section heading governing the anchor plus the free
// text of the anchor's own block, so period references like "abril/23" that
// live outside the anchor are still visible to the matcher. The block text
// stays local on purpose: a wider ancestor would carry neighboring sections'
// headings into the context and misattribute the category.
func linkContext(sel *goquery.Selection) string {
	heading := nearestHeading(sel)
	block := nearestBlockText(sel)
	if heading == "" {
		return block
	}
	if block == "" {
		return heading
	}
	return heading + " " + block
}

func nearestHeading(sel *goquery.Selection) string {
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		prev := cur.PrevAllFiltered(headingSelector).First()
		if prev.Length() > 0 {
			return squashSpace(prev.Text())
		}
	}
	return ""
}

// nearestBlockText returns the text of the closest ancestor that adds free
// text around the anchor. The ascent stops at any container holding
// headings: that is the boundary of the link's own section.
func nearestBlockText(sel *goquery.Selection) string {
	anchorText := squashSpace(sel.Text())
	cur := sel
	for i := 0; i < maxContextAscent; i++ {
		cur = cur.Parent()
		if cur.Length() == 0 {
			break
		}
		if cur.Find(headingSelector).Length() > 0 {
			break
		}
		if text := squashSpace(cur.Text()); len(text) > len(anchorText) {
			return text
		}
	}
	return ""
}

func squashSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
