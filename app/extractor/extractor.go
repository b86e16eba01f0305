package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"
	"mvdan.cc/xurls/v2"
)

// Result is what content extraction produces for a URL-bearing item.
type Result struct {
	Title         string
	Description   string
	Content       string
	OutgoingLinks []string
}

// Extractor turns a URL into readable content plus outgoing links. The
// implementation imposes its own wait bound; callers add no timeout of
// their own.
type Extractor interface {
	Run(ctx context.Context, pageURL string) (*Result, error)
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	linkRe     *regexp.Regexp
}

func NewClient(httpClient *http.Client, userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
		linkRe:     xurls.Strict(),
	}
}

var _ Extractor = (*Client)(nil)

func (c *Client) Run(ctx context.Context, pageURL string) (*Result, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("item has no link")
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid item URL: %w", err)
	}

	data, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return nil, fmt.Errorf("no content extracted from page")
	}

	result := &Result{
		Title:         article.Title,
		Description:   article.Excerpt,
		Content:       article.Content,
		OutgoingLinks: collectLinks(data, parsed),
	}

	if len(result.OutgoingLinks) == 0 {
		result.OutgoingLinks = c.linkRe.FindAllString(article.TextContent, -1)
	}

	slog.Debug("Content extracted",
		"url", pageURL,
		"title", result.Title,
		"content_length", len(result.Content),
		"outgoing_links", len(result.OutgoingLinks))

	return result, nil
}

func (c *Client) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// collectLinks gathers absolute, deduplicated outgoing links from the page
// body, skipping self-links and fragments.
func collectLinks(data []byte, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""

		link := abs.String()
		if link == base.String() {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}

		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links
}
