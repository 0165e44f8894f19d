package processor

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/byteowlz/kaextract/internal/model"
)

// Selectors of the listing page markup.
const (
	TitleSelector       = "h1#viewad-title"
	DescriptionSelector = "#viewad-description-text"
	PriceSelector       = "#viewad-price"
	LocationSelector    = "#viewad-locality"
	ImageSelector       = ".galleryimage-element img"
)

// ErrNoListing means the page parsed but carries no listing, e.g. a
// search or "ad deleted" page.
var ErrNoListing = errors.New("no listing found on page")

type ProcessOptions struct {
	// ReadabilityFallback fills an empty description from the page's
	// main content.
	ReadabilityFallback bool
	// MaxDescriptionLength truncates fallback descriptions; 0 keeps all.
	MaxDescriptionLength int
}

func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{ReadabilityFallback: true, MaxDescriptionLength: 2000}
}

type ListingProcessor struct {
}

func NewListingProcessor() *ListingProcessor {
	return &ListingProcessor{}
}

// Process extracts the listing fields from html. pageURL resolves relative
// image sources.
func (lp *ListingProcessor) Process(html, pageURL string, opts ProcessOptions) (*model.Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, _ := url.Parse(pageURL)

	result := &model.Result{
		Title:       lp.text(doc, TitleSelector),
		Description: lp.description(doc),
		Price:       lp.text(doc, PriceSelector),
		Location:    lp.text(doc, LocationSelector),
		Images:      lp.extractImages(doc, base),
		SourceURL:   pageURL,
	}

	if result.Title == "" {
		result.Title = findMetaContent(doc, "og:title")
	}
	if result.Title == "" {
		return nil, ErrNoListing
	}

	if len(result.Images) == 0 {
		if og := findMetaContent(doc, "og:image"); og != "" {
			result.Images = append(result.Images, resolve(base, og))
		}
	}

	if result.Description == "" && opts.ReadabilityFallback {
		result.Description = lp.readabilityDescription(html, base, opts.MaxDescriptionLength)
	}

	return result, nil
}

func (lp *ListingProcessor) ProcessFromReader(r io.Reader, pageURL string, opts ProcessOptions) (*model.Result, error) {
	htmlBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML: %w", err)
	}

	return lp.Process(string(htmlBytes), pageURL, opts)
}

func (lp *ListingProcessor) text(doc *goquery.Document, selector string) string {
	return CollapseSpaces(doc.Find(selector).First().Text())
}

// description keeps line breaks from <br> tags; everything else is
// collapsed like the other fields.
func (lp *ListingProcessor) description(doc *goquery.Document) string {
	sel := doc.Find(DescriptionSelector).First()
	if sel.Length() == 0 {
		return ""
	}
	sel.Find("br").ReplaceWithHtml("\n")

	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		if line = CollapseSpaces(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func (lp *ListingProcessor) extractImages(doc *goquery.Document, base *url.URL) []string {
	images := []string{}
	seen := make(map[string]struct{})

	doc.Find(ImageSelector).Each(func(i int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		// lazy loaded gallery images only carry data-src
		if src == "" || strings.HasPrefix(src, "data:") {
			src = s.AttrOr("data-src", "")
		}
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		src = resolve(base, src)
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}
		images = append(images, src)
	})

	return images
}

func (lp *ListingProcessor) readabilityDescription(html string, base *url.URL, maxLen int) string {
	article, err := readability.FromReader(strings.NewReader(html), base)
	if err != nil {
		return ""
	}

	text := CollapseSpaces(article.Excerpt)
	if text == "" {
		text = CollapseSpaces(article.TextContent)
	}
	if maxLen > 0 {
		if r := []rune(text); len(r) > maxLen {
			text = strings.TrimSpace(string(r[:maxLen])) + "…"
		}
	}
	return text
}

func findMetaContent(doc *goquery.Document, property string) string {
	if content := doc.Find(fmt.Sprintf("meta[property='%s']", property)).AttrOr("content", ""); content != "" {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(doc.Find(fmt.Sprintf("meta[name='%s']", property)).AttrOr("content", ""))
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// CollapseSpaces trims s and folds every whitespace run into one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
