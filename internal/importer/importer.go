// Package importer turns local files and web pages into note text.
package importer

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/logger"
)

// Document is imported text ready to be stored as a note.
type Document struct {
	Title   string
	Content string
	Source  string
}

// Main content areas, in order of preference.
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".main-content",
	".content",
	".post-content",
	".entry-content",
	"body",
}

// Page chrome that never belongs in study notes.
const boilerplateSelector = "script, style, noscript, nav, aside, footer, .sidebar, .navigation, .menu, .footer"

// FromFile reads markdown, plain text or HTML from disk.
func FromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	base := filepath.Base(path)
	fallback := strings.TrimSuffix(base, filepath.Ext(base))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		doc, err := ConvertHTML(string(data), "")
		if err != nil {
			return nil, err
		}
		if doc.Title == "" {
			doc.Title = fallback
		}
		doc.Source = path
		return doc, nil
	}

	content := CleanMarkdown(string(data))
	if content == "" {
		return nil, interrors.ErrEmptyContent
	}
	return &Document{
		Title:   TitleFromMarkdown(content, fallback),
		Content: content,
		Source:  path,
	}, nil
}

// FromURL renders pageURL in a headless browser so scripted content is
// present, then converts it like ConvertHTML.
func FromURL(ctx context.Context, pageURL string, timeout time.Duration) (*Document, error) {
	if u, err := url.Parse(pageURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, interrors.Validation("invalid URL %q", pageURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if isRestrictedEnvironment() {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var title, html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		// scripted pages often fill in after load
		chromedp.Sleep(2*time.Second),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	doc, err := ConvertHTML(html, pageURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) != "" {
		doc.Title = strings.TrimSpace(title)
	}
	if doc.Title == "" {
		doc.Title = pageURL
	}
	doc.Source = pageURL
	return doc, nil
}

// ConvertHTML extracts the title and main content of an HTML page as
// markdown. Relative image links are resolved against baseURL when given.
func ConvertHTML(html, baseURL string) (*Document, error) {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(page.Find("h1").First().Text())
	}

	page.Find(boilerplateSelector).Remove()

	var body string
	for _, selector := range contentSelectors {
		if sel := page.Find(selector).First(); sel.Length() > 0 {
			body, err = sel.Html()
			if err != nil {
				return nil, fmt.Errorf("failed to read %s content: %w", selector, err)
			}
			break
		}
	}

	converter := md.NewConverter("", true, nil)
	converter.AddRules(
		md.Rule{
			Filter: []string{"img"},
			Replacement: func(content string, selection *goquery.Selection, opt *md.Options) *string {
				src, exists := selection.Attr("src")
				if !exists {
					text := ""
					return &text
				}

				alt, _ := selection.Attr("alt")
				if alt == "" {
					alt = "Image"
				}

				result := fmt.Sprintf("![%s](%s)", alt, ResolveURL(baseURL, src))
				return &result
			},
		},
	)

	markdown, err := converter.ConvertString(body)
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	content := CleanMarkdown(markdown)
	if content == "" {
		return nil, interrors.ErrEmptyContent
	}

	logger.Debug("Converted HTML: title='%s', content_length=%d", title, len(content))
	return &Document{Title: title, Content: content}, nil
}

// TitleFromMarkdown returns the text of the first heading, or fallback.
func TitleFromMarkdown(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
				return t
			}
		}
	}
	return fallback
}

// CleanMarkdown trims every line, collapses runs of blank lines and drops
// leading and trailing blank lines.
func CleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	var cleanLines []string

	previousLineEmpty := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if !previousLineEmpty {
				cleanLines = append(cleanLines, "")
				previousLineEmpty = true
			}
			continue
		}

		previousLineEmpty = false
		cleanLines = append(cleanLines, trimmed)
	}

	for len(cleanLines) > 0 && cleanLines[0] == "" {
		cleanLines = cleanLines[1:]
	}
	for len(cleanLines) > 0 && cleanLines[len(cleanLines)-1] == "" {
		cleanLines = cleanLines[:len(cleanLines)-1]
	}

	return strings.Join(cleanLines, "\n")
}

// ResolveURL resolves href against baseURL, returning href unchanged when
// either does not parse or there is no base.
func ResolveURL(baseURL, href string) string {
	if baseURL == "" {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// isRestrictedEnvironment reports whether Chrome's sandbox must be disabled
// (CI runners and containers).
func isRestrictedEnvironment() bool {
	ciEnvVars := []string{
		"CI", "CONTINUOUS_INTEGRATION", "BUILD_NUMBER", "GITHUB_ACTIONS",
		"GITLAB_CI", "JENKINS_URL", "TRAVIS", "CIRCLECI", "BUILDKITE",
	}
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	// AppArmor blocks unprivileged user namespaces on Ubuntu 23.10+
	if _, err := os.Stat("/proc/sys/kernel/apparmor_restrict_unprivileged_userns"); err == nil {
		return true
	}

	return false
}
