// Package session extracts candidate memories from a JSONL conversation
// transcript, grounded directly in lazypower-continuity's
// internal/transcript/parser.go line-oriented JSONL scan.
package session

import (
	"bufio"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/patternforge/hebbian/internal/extract"
	"github.com/patternforge/hebbian/internal/models"
)

type entry struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var systemReminderRe = regexp.MustCompile(`<system-reminder>[\s\S]*?</system-reminder>`)

// directiveRe matches imperative sentences worth capturing as rules —
// "always", "never", "must" — the regex-based heuristic spec §1 assigns to
// this channel.
var directiveRe = regexp.MustCompile(`(?i)\b(always|never|must|don't|do not)\b`)

// Extractor pulls directive-shaped statements out of user turns in a
// transcript.
type Extractor struct {
	Domain string
	Source string
}

func New(domain, source string) *Extractor {
	return &Extractor{Domain: domain, Source: source}
}

func (e *Extractor) Extract(content string) ([]models.Candidate, error) {
	var candidates []models.Candidate

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var en entry
		if err := json.Unmarshal([]byte(line), &en); err != nil {
			continue
		}
		if en.Type != "user" || en.Message == nil {
			continue
		}

		var msg message
		if err := json.Unmarshal(en.Message, &msg); err != nil {
			continue
		}

		text := extractText(msg.Content)
		text = systemReminderRe.ReplaceAllString(text, "")
		text = strings.TrimSpace(text)

		if len(text) < extract.MinDetailLength || strings.HasPrefix(text, "{") {
			continue
		}
		if !directiveRe.MatchString(text) {
			continue
		}

		candidates = append(candidates, models.Candidate{
			Domain:      e.Domain,
			PatternType: patternPtr(models.PatternDirective),
			Title:       truncateTitle(text),
			Detail:      text,
			Source:      e.Source,
		})
	}

	return candidates, scanner.Err()
}

func extractText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []contentItem
	if err := json.Unmarshal(raw, &items); err == nil {
		var texts []string
		for _, item := range items {
			if item.Type == "text" && item.Text != "" {
				texts = append(texts, item.Text)
			}
		}
		return strings.Join(texts, "\n")
	}
	return ""
}

func truncateTitle(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120]
}

func patternPtr(pt models.PatternType) *models.PatternType { return &pt }
