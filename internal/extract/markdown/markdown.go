// Package markdown extracts atomic patterns from curated Markdown knowledge
// files: a heading gives the title and pattern-type hint, the body text
// under it (bullet markers stripped) gives the detail. Grounded in the teacher's transcript.parser.go
// line-oriented, regex-filtered scanning style.
package markdown

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/patternforge/hebbian/internal/extract"
	"github.com/patternforge/hebbian/internal/models"
)

var (
	headingRe   = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	frontLineRe = regexp.MustCompile(`^[-*]\s+(.*)$`)
)

// Extractor produces candidates by walking a Markdown document section by
// section. The domain is the file's basename-derived hint supplied by the
// caller; pattern_type is inferred from the heading text when it names a
// recognised type, else left nil (legacy file-level blob per spec §3).
type Extractor struct {
	Domain string
	Source string
}

func New(domain, source string) *Extractor {
	return &Extractor{Domain: domain, Source: source}
}

func (e *Extractor) Extract(content string) ([]models.Candidate, error) {
	var candidates []models.Candidate

	var title string
	var body strings.Builder

	flush := func() {
		defer body.Reset()
		detail := strings.TrimSpace(body.String())
		if title == "" || len(detail) < extract.MinDetailLength {
			return
		}
		pt := inferPatternType(title)
		candidates = append(candidates, models.Candidate{
			Domain:        e.Domain,
			PatternType:   pt,
			Title:         truncateTitle(title),
			Detail:        detail,
			Source:        e.Source,
			SourceSection: title,
		})
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			title = strings.TrimSpace(m[2])
			continue
		}

		if isLowSignal(line) {
			continue
		}

		if m := frontLineRe.FindStringSubmatch(line); m != nil {
			body.WriteString(m[1])
			body.WriteString(" ")
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			body.WriteString(trimmed)
			body.WriteString(" ")
		}
	}
	flush()

	return candidates, scanner.Err()
}

var thinkingAloudPrefixes = []string{"note to self", "wip", "todo", "scratch"}

func isLowSignal(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	for _, p := range thinkingAloudPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func truncateTitle(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120]
}

var patternTypesByPriority = []models.PatternType{
	models.PatternRule, models.PatternDirective, models.PatternCommand,
	models.PatternFact, models.PatternDiscovery, models.PatternFailure,
	models.PatternSolution, models.PatternConfig, models.PatternBenchmark,
	models.PatternBugInsight, models.PatternDecision, models.PatternSpec,
	models.PatternCorrection, models.PatternConclusion,
}

func inferPatternType(title string) *models.PatternType {
	lower := strings.ToLower(title)
	for _, pt := range patternTypesByPriority {
		if strings.Contains(lower, strings.ReplaceAll(string(pt), "-", " ")) {
			p := pt
			return &p
		}
	}
	return nil
}
