package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// candidateSelectors are tried in order by the density extractor. The first
// selector whose combined paragraph text beats the density floor wins.
var candidateSelectors = []string{
	"article", "main", "[role=main]", "#content", ".post-content",
	".article-body", ".entry-content", ".story-body", "body",
}

// FromHTMLDensity is the fallback extraction strategy: pick the container
// with the densest paragraph text using goquery selectors. It recovers pages
// whose semantic structure defeats the DOM walker (div soup, themes that
// nest the article in generic containers).
func FromHTMLDensity(input []byte) Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return Document{}
	}
	title := strings.TrimSpace(doc.Find("head title").First().Text())

	var bestText string
	for _, sel := range candidateSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		var b strings.Builder
		container.Find("p, h1, h2, h3, li, blockquote").Each(func(_ int, s *goquery.Selection) {
			if s.ParentsFiltered("nav, footer, aside, form").Length() > 0 {
				return
			}
			t := strings.TrimSpace(s.Text())
			if t == "" {
				return
			}
			b.WriteString(t)
			b.WriteString("\n\n")
		})
		text := normalizeWhitespace(b.String())
		if len(text) > len(bestText) {
			bestText = text
		}
		// Stop early once a semantic container yields substantial text;
		// later selectors are broader and only add chrome.
		if sel == "article" || sel == "main" {
			if len(bestText) >= 800 {
				break
			}
		}
	}
	return Document{Title: title, Text: bestText}
}

// Best runs both strategies and returns the longer clean text. Titles fall
// back across strategies when one side is empty.
func Best(input []byte) Document {
	primary := FromHTML(input)
	fallback := FromHTMLDensity(input)
	best := primary
	if len(fallback.Text) > len(primary.Text) {
		best = fallback
	}
	if best.Title == "" {
		if primary.Title != "" {
			best.Title = primary.Title
		} else {
			best.Title = fallback.Title
		}
	}
	return best
}
