// Package fetcher downloads pages and extracts title, clean text and
// outgoing links from HTML.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Link is one outgoing edge with its rel=nofollow flag.
type Link struct {
	URL      string
	NoFollow bool
}

// Result contains the extracted data from one fetched page. A non-2xx
// status or a non-HTML content type leaves Title/Text/Links empty; the
// caller decides to skip, it is not an error.
type Result struct {
	URL         string
	StatusCode  int
	ContentType string
	Title       string
	Text        string
	Links       []Link
	NoIndex     bool
}

// HTML reports whether the response carried an HTML content type.
func (r *Result) HTML() bool {
	return strings.Contains(r.ContentType, "html")
}

// Success reports a 2xx status.
func (r *Result) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Fetch downloads a page and, when it is a successful HTML response,
// parses it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	result := &Result{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if !result.Success() || !result.HTML() {
		return result, nil
	}

	if err := f.parseHTML(resp.Body, result); err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}
	return result, nil
}

// skipTags are subtrees excised from the extracted text.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
}

// parseHTML walks the token stream, collecting the title, body text
// outside excluded subtrees, outgoing links and the noindex directive.
func (f *Fetcher) parseHTML(body io.Reader, result *Result) error {
	base, err := url.Parse(result.URL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	tokenizer := html.NewTokenizer(body)
	var textBuilder strings.Builder
	skipDepth := 0
	inTitle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				result.Text = cleanText(textBuilder.String())
				return nil
			}
			return tokenizer.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			selfClosing := tokenType == html.SelfClosingTagToken

			switch token.Data {
			case "title":
				if !selfClosing {
					inTitle = true
				}
			case "meta":
				if isNoIndexMeta(token) {
					result.NoIndex = true
				}
			case "a":
				if link, ok := extractLink(token, base); ok {
					result.Links = append(result.Links, link)
				}
			default:
				if skipTags[token.Data] && !selfClosing {
					skipDepth++
				}
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			switch {
			case token.Data == "title":
				inTitle = false
			case skipTags[token.Data] && skipDepth > 0:
				skipDepth--
			}

		case html.TextToken:
			text := strings.TrimSpace(tokenizer.Token().Data)
			if text == "" {
				continue
			}
			if inTitle {
				if result.Title == "" {
					result.Title = text
				}
				continue
			}
			if skipDepth == 0 {
				textBuilder.WriteString(text + " ")
			}
		}
	}
}

// isNoIndexMeta detects <meta name="robots|googlebot" content="...noindex...">.
func isNoIndexMeta(token html.Token) bool {
	var name, content string
	for _, attr := range token.Attr {
		switch attr.Key {
		case "name":
			name = strings.ToLower(attr.Val)
		case "content":
			content = strings.ToLower(attr.Val)
		}
	}
	return (name == "robots" || name == "googlebot") && strings.Contains(content, "noindex")
}

// extractLink resolves an anchor's href against the page base.
func extractLink(token html.Token, base *url.URL) (Link, bool) {
	var href, rel string
	for _, attr := range token.Attr {
		switch attr.Key {
		case "href":
			href = attr.Val
		case "rel":
			rel = attr.Val
		}
	}

	resolved := cleanLink(href, base)
	if resolved == "" {
		return Link{}, false
	}
	return Link{
		URL:      resolved,
		NoFollow: strings.Contains(strings.ToLower(rel), "nofollow"),
	}, true
}

// cleanText removes excessive whitespace.
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// cleanLink resolves relative URLs and filters out non-navigable hrefs.
func cleanLink(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
