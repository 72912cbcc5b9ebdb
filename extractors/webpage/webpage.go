// Package webpage fetches and converts an HTML page to Markdown (spec
// §4.4): strip scripts/styles, resolve relative URLs against the page's own
// base, convert to Markdown, and record meta-tags (title, description,
// author, og:*) as structured data (spec §4.4, SPEC_FULL §12's "webpage
// meta-tag capture"). Grounded on the goquery selector-query style used
// across the example pack's scraping code.
package webpage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/docpipe/docpipe/extractors"
)

// Extractor implements extractors.Extractor for document.KindWebpage.
type Extractor struct {
	Client *http.Client
}

// New builds the webpage extractor with a bounded-timeout HTTP client.
func New() *Extractor {
	return &Extractor{Client: &http.Client{Timeout: 20 * time.Second}}
}

var _ extractors.Extractor = (*Extractor)(nil)

func (e *Extractor) Extract(ctx context.Context, src extractors.Source) (extractors.Result, error) {
	if src.URL == "" {
		return extractors.Result{}, fmt.Errorf("%w: webpage extractor requires a URL", extractors.ErrMalformed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: build request: %v", extractors.ErrMalformed, err)
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: fetch %s: %v", extractors.ErrUnavailable, src.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return extractors.Result{}, fmt.Errorf("%w: %s returned %d", extractors.ErrUnavailable, src.URL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: parse html: %v", extractors.ErrMalformed, err)
	}

	base, _ := url.Parse(src.URL)
	doc.Find("script, style, noscript").Remove()

	meta := captureMeta(doc)
	resolveLinks(doc, base)

	var formatted strings.Builder
	if title := meta["title"]; title != "" {
		formatted.WriteString("# " + title + "\n\n")
	}
	var raw strings.Builder
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		raw.WriteString(text)
		raw.WriteString("\n")

		switch goquery.NodeName(s) {
		case "h1":
			formatted.WriteString("# " + text + "\n\n")
		case "h2":
			formatted.WriteString("## " + text + "\n\n")
		case "h3":
			formatted.WriteString("### " + text + "\n\n")
		case "li":
			formatted.WriteString("- " + text + "\n")
		default:
			formatted.WriteString(text + "\n\n")
		}
	})

	if raw.Len() == 0 {
		return extractors.Result{}, fmt.Errorf("%w: page had no extractable text", extractors.ErrMalformed)
	}

	structured := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		structured[k] = v
	}

	return extractors.Result{
		RawText:           raw.String(),
		FormattedMarkdown: formatted.String(),
		StructuredData:    structured,
	}, nil
}

// captureMeta pulls title, description, author, and og:* tags.
func captureMeta(doc *goquery.Document) map[string]string {
	meta := map[string]string{"title": strings.TrimSpace(doc.Find("title").First().Text())}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		property, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		switch {
		case name == "description":
			meta["description"] = content
		case name == "author":
			meta["author"] = content
		case strings.HasPrefix(property, "og:"):
			meta[property] = content
		}
	})
	return meta
}

// resolveLinks rewrites relative href/src attributes in the parsed document
// against base. Extract builds its Markdown from element text only, so the
// rewritten links do not appear in the extracted Markdown.
func resolveLinks(doc *goquery.Document, base *url.URL) {
	if base == nil {
		return
	}
	for _, spec := range []struct{ sel, attr string }{{"a", "href"}, {"img", "src"}} {
		doc.Find(spec.sel).Each(func(_ int, s *goquery.Selection) {
			v, ok := s.Attr(spec.attr)
			if !ok {
				return
			}
			resolved, err := base.Parse(v)
			if err != nil {
				return
			}
			s.SetAttr(spec.attr, resolved.String())
		})
	}
}
