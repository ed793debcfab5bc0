package relay

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/pkg/httpclient"
)

const (
	maxHTMLBodyBytes      = 1 << 20 // 1 MiB
	defaultScraperTimeout = 10 * time.Second
)

var linkPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// FirstLink returns the first http(s) URL in the message text, falling back
// to a linked attachment such as an image or video.
func FirstLink(msg domain.Message) string {
	if m := linkPattern.FindString(msg.Text); m != "" {
		return strings.TrimRight(m, ".,;:!?)")
	}
	for _, a := range msg.Attachments {
		if a.URL != "" && (a.Type == "image" || a.Type == "video" || a.Type == "linked_image") {
			return a.URL
		}
	}
	return ""
}

// Scraper fetches linked pages and extracts metadata from OG tags.
type Scraper struct {
	client  httpclient.Client
	headers map[string]string
}

// NewScraper constructs a scraper with the provided HTTP client (or default).
func NewScraper(client httpclient.Client, userAgent string) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(defaultScraperTimeout)
	}
	headers := map[string]string{"Accept": "text/html,application/xhtml+xml"}
	if userAgent != "" {
		headers["User-Agent"] = userAgent
	}
	return &Scraper{client: client, headers: headers}
}

// Preview fetches link and returns its metadata. The URL is always set even
// when the page carries no tags.
func (s *Scraper) Preview(ctx context.Context, link string) (domain.LinkPreview, error) {
	preview := domain.LinkPreview{URL: link}

	resp, err := s.client.Get(ctx, link, s.headers)
	if err != nil {
		return preview, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return preview, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return preview, err
	}
	preview.Title = meta.Title
	preview.Description = meta.Description
	preview.ImageURL = resolveURL(meta.ImageURL, link)
	return preview, nil
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			extract(`meta[name="twitter:title"]`),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image"]`),
			extract(`meta[name="twitter:image"]`),
		),
	}, nil
}

type pageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

// resolveURL makes ref absolute against base. Unparseable input is returned as is.
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
