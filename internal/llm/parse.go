package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/streed/study-notes/internal/models"
)

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ParseQuiz decodes model output into a quiz. Markdown code fences around the
// JSON object are tolerated since local models tend to add them.
func ParseQuiz(raw string) (*models.Quiz, error) {
	payload := stripFence(raw)
	if start, end := strings.Index(payload, "{"), strings.LastIndex(payload, "}"); start >= 0 && end > start {
		payload = payload[start : end+1]
	}

	var quiz models.Quiz
	if err := json.Unmarshal([]byte(payload), &quiz); err != nil {
		return nil, fmt.Errorf("failed to parse quiz response: %w", err)
	}
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("model returned an invalid quiz: %w", err)
	}
	return &quiz, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

var (
	tagsJSON    = regexp.MustCompile(`\{[^}]*"tags"[^}]*\}`)
	tagsPrefix  = regexp.MustCompile(`(?i)^(here are|suggested|recommended)?\s*(tags?|keywords?)\s*:?\s*`)
	tagTrimHead = regexp.MustCompile(`^[-•*\d.\s"'\[\]()#]+`)
	tagTrimTail = regexp.MustCompile(`[-•*.\s"'\[\]()]+$`)
	whitespace  = regexp.MustCompile(`\s+`)
)

var tagStopWords = map[string]bool{
	"the": true, "and": true, "or": true, "of": true, "for": true, "with": true,
	"note": true, "notes": true, "lecture notes": true, "content": true, "text": true,
}

// ParseTags extracts at most max clean, lowercase, de-duplicated tags from a
// model response that is either a JSON object with a "tags" array or a
// comma/semicolon/space separated list.
func ParseTags(response string, max int) []string {
	var raw []string

	if match := tagsJSON.FindString(response); match != "" {
		var suggestion struct {
			Tags []string `json:"tags"`
		}
		if err := json.Unmarshal([]byte(match), &suggestion); err == nil {
			raw = suggestion.Tags
		}
	}
	if raw == nil {
		line := strings.TrimSpace(stripFence(response))
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		line = tagsPrefix.ReplaceAllString(line, "")
		switch {
		case strings.Contains(line, ","):
			raw = strings.Split(line, ",")
		case strings.Contains(line, ";"):
			raw = strings.Split(line, ";")
		default:
			raw = whitespace.Split(line, -1)
		}
	}

	seen := make(map[string]bool)
	tags := []string{}
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = tagTrimHead.ReplaceAllString(tag, "")
		tag = tagTrimTail.ReplaceAllString(tag, "")
		tag = whitespace.ReplaceAllString(tag, "-")

		if len(tag) < 2 || len(tag) > 30 || tagStopWords[tag] || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if max > 0 && len(tags) == max {
			break
		}
	}
	return tags
}
