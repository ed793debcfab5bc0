package relay

import (
	"bytes"
	"context"
	"testing"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient returns a single response.
type stubHTTPClient struct {
	resp    httpclient.Response
	headers map[string]string
}

func (s *stubHTTPClient) Get(_ context.Context, _ string, headers map[string]string) (httpclient.Response, error) {
	s.headers = headers
	return s.resp, nil
}

func (s *stubHTTPClient) Post(context.Context, string, map[string]string) (httpclient.Response, error) {
	return s.resp, nil
}

func TestParseMetaPrefersOGTags(t *testing.T) {
	html := []byte(`
<html>
  <head>
    <title>Fallback</title>
    <meta property="og:title" content="OG Title">
    <meta property="og:description" content="OG Desc">
    <meta property="og:image" content="/img/og.png">
  </head>
</html>`)

	meta, err := parseMeta(html)
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Title != "OG Title" || meta.Description != "OG Desc" || meta.ImageURL != "/img/og.png" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestParseMetaFallsBackToTitle(t *testing.T) {
	meta, err := parseMeta([]byte(`<html><head><title> Plain </title><meta name="description" content="d"></head></html>`))
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Title != "Plain" || meta.Description != "d" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestResolveURLHandlesRelative(t *testing.T) {
	got := resolveURL("/img.png", "https://example.com/articles/1")
	if got != "https://example.com/img.png" {
		t.Fatalf("resolveURL got %q", got)
	}

	if got := resolveURL("", "https://example.com"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestScraperPreviewResolvesImage(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: 200, body: []byte(
		`<html><head><meta property="og:title" content="T"><meta property="og:image" content="img/a.png"></head></html>`,
	)}}
	scraper := NewScraper(client, "groupkit-test")

	p, err := scraper.Preview(context.Background(), "https://example.com/posts/1")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.URL != "https://example.com/posts/1" || p.Title != "T" || p.ImageURL != "https://example.com/posts/img/a.png" {
		t.Fatalf("unexpected preview %#v", p)
	}
	if client.headers["User-Agent"] != "groupkit-test" {
		t.Fatalf("user agent not sent: %v", client.headers)
	}
}

func TestScraperPreviewLimitsBodyAndReportsStatus(t *testing.T) {
	body := bytes.Repeat([]byte("a"), maxHTMLBodyBytes+10)
	scraper := NewScraper(&stubHTTPClient{resp: stubHTTPResponse{body: body, statusCode: 200}}, "")

	p, err := scraper.Preview(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.Title != "" {
		t.Fatalf("expected empty title because body had no metadata")
	}

	scraper = NewScraper(&stubHTTPClient{resp: stubHTTPResponse{body: []byte("gone"), statusCode: 404}}, "")
	if _, err := scraper.Preview(context.Background(), "https://example.com"); err == nil {
		t.Fatalf("expected error on 404")
	}
}

func TestFirstLink(t *testing.T) {
	cases := []struct {
		msg  domain.Message
		want string
	}{
		{domain.Message{Text: "see (https://example.com/a)."}, "https://example.com/a"},
		{domain.Message{Text: "no links"}, ""},
		{domain.Message{Attachments: []domain.Attachment{{Type: "image", URL: "https://i.groupme.com/x.png"}}}, "https://i.groupme.com/x.png"},
		{domain.Message{Attachments: []domain.Attachment{{Type: "mentions"}}}, ""},
	}
	for _, tc := range cases {
		if got := FirstLink(tc.msg); got != tc.want {
			t.Fatalf("FirstLink(%+v) = %q, want %q", tc.msg, got, tc.want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", " ", "foo", "bar"); got != "foo" {
		t.Fatalf("firstNonEmpty returned %q", got)
	}
}
