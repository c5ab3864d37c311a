package stages

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/davidleathers113/indexforge-sub000/document"
	"github.com/davidleathers113/indexforge-sub000/observability"
	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

// Match is one detected PII instance.
type Match struct {
	Type  string
	Value string
	Start int
	End   int
}

// regexPatterns is copied verbatim (pattern text and IGNORECASE intent,
// expressed here as a leading "(?i)") from
// original_source/src/utils/pii_detector.py's PIIDetector.patterns.
var regexPatterns = map[string]*regexp.Regexp{
	"email":             regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
	"phone":             regexp.MustCompile(`(?i)\+?(?:\d{1,4}[-.\s]?)?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,4}`),
	"ssn":                regexp.MustCompile(`(?i)\b\d{3}[-.]?\d{2}[-.]?\d{4}\b`),
	"credit_card":        regexp.MustCompile(`(?i)\b(?:\d[ -]*?){13,16}\b|\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
	"ip_address":         regexp.MustCompile(`(?i)\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
	"date":               regexp.MustCompile(`(?i)\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b|\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`),
	"passport":           regexp.MustCompile(`(?i)\b[A-Z]{1,2}[0-9]{6,9}\b`),
	"bitcoin_address":    regexp.MustCompile(`(?i)\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`),
	"ethereum_address":   regexp.MustCompile(`(?i)\b0x[a-fA-F0-9]{40}\b`),
}

// redactionTokens maps a PII type to its redaction token, matching
// pii_detector.py's default redaction_patterns.
var redactionTokens = map[string]string{
	"email":             "[EMAIL]",
	"phone":             "[PHONE]",
	"person":            "[PERSON]",
	"organization":      "[ORG]",
	"location":          "[LOCATION]",
	"money":             "[MONEY]",
	"date":              "[DATE]",
	"ssn":               "[SSN]",
	"credit_card":       "[CREDIT_CARD]",
	"ip_address":        "[IP]",
	"passport":          "[PASSPORT]",
	"bitcoin_address":   "[BITCOIN]",
	"ethereum_address":  "[ETH]",
	"facility":          "[FACILITY]",
	"product":           "[PRODUCT]",
	"event":             "[EVENT]",
	"law":               "[LAW]",
	"group":             "[GROUP]",
}

// nerLabelToType maps the closed NER tag set to spec §4.4's PII type
// vocabulary, matching pii_detector.py's ner_types table.
var nerLabelToType = map[string]string{
	"PERSON": "person",
	"ORG":    "organization",
	"GPE":    "location",
	"LOC":    "location",
	"FAC":    "facility",
	"MONEY":  "money",
	"PRODUCT": "product",
	"EVENT":  "event",
	"LAW":    "law",
	"NORP":   "group",
}

// NERTagger is the pluggable named-entity boundary (spec §1: the NER
// library is an out-of-scope collaborator). Label must be one of the
// keys of nerLabelToType; unrecognized labels are dropped.
type NERTagger interface {
	Tag(ctx context.Context, text string) ([]NEREntity, error)
}

// NEREntity is one entity returned by a NERTagger.
type NEREntity struct {
	Label string
	Text  string
	Start int
	End   int
}

// NoopNERTagger finds no entities, used when no NER endpoint is
// configured; regex detection still runs.
type NoopNERTagger struct{}

func (NoopNERTagger) Tag(context.Context, string) ([]NEREntity, error) { return nil, nil }

// Detector finds and optionally redacts PII in text.
type Detector struct {
	ner NERTagger
}

// NewDetector builds a Detector. A nil ner selects NoopNERTagger.
func NewDetector(ner NERTagger) *Detector {
	if ner == nil {
		ner = NoopNERTagger{}
	}
	return &Detector{ner: ner}
}

// Detect runs every regex pattern plus the configured NER tagger,
// deduplicates overlaps by keeping the earliest-starting, longest
// match (spec §4.4's literal tie-break, diverging from the Python
// reference's incidental (start, end)-ascending sort), and returns
// matches sorted by start offset.
func (d *Detector) Detect(ctx context.Context, text string) ([]Match, error) {
	if text == "" {
		return nil, nil
	}

	var all []Match
	for piiType, pattern := range regexPatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			all = append(all, Match{Type: piiType, Value: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
		}
	}

	entities, err := d.ner.Tag(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if t, ok := nerLabelToType[e.Label]; ok {
			all = append(all, Match{Type: t, Value: e.Text, Start: e.Start, End: e.End})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return (all[i].End - all[i].Start) > (all[j].End - all[j].Start)
	})

	var resolved []Match
	lastEnd := -1
	for _, m := range all {
		if m.Start >= lastEnd {
			resolved = append(resolved, m)
			lastEnd = m.End
		}
	}
	return resolved, nil
}

// Redact replaces every match in text with its type-tagged token,
// applied from right to left so earlier offsets stay valid.
func Redact(text string, matches []Match) string {
	if text == "" || len(matches) == 0 {
		return text
	}

	ordered := append([]Match(nil), matches...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	out := text
	for _, m := range ordered {
		token, ok := redactionTokens[m.Type]
		if !ok {
			token = fmt.Sprintf("[REDACTED:%s]", m.Type)
		}
		if m.Start < 0 || m.End > len(out) || m.Start > m.End {
			continue
		}
		out = out[:m.Start] + token + out[m.End:]
	}
	return out
}

// PIIStage is the PII processing stage. It never drops a document: on
// success it enriches metadata and optionally redacts the body; on a
// detector failure it records a Warning step and passes the document
// through unchanged (spec §4.4: "Pass-through + Warning step").
type PIIStage struct {
	detector *Detector
	redact   bool
	steps    StepRecorder
}

// NewPIIStage builds the PII stage. redact gates whether detected PII
// is also scrubbed from the body/summary (the --redact-pii flag,
// distinct from detection which --detect-pii always runs when enabled).
func NewPIIStage(detector *Detector, redact bool, steps StepRecorder) *PIIStage {
	return &PIIStage{detector: detector, redact: redact, steps: steps}
}

func (s *PIIStage) Name() string { return "PII" }

func (s *PIIStage) Process(ctx context.Context, batch []*document.Document) ([]*document.Document, error) {
	for _, doc := range batch {
		matches, err := s.detector.Detect(ctx, doc.Content.Body)
		if err != nil {
			wrapped := pipelineerr.NewProcessing(pipelineerr.StagePII, err, "pii detection failed")
			recordStep(s.steps, doc.ID, s.Name(), observability.StatusWarning, nil, nil, wrapped.Error())
			continue
		}

		foundTypes := map[string]int{}
		for _, m := range matches {
			foundTypes[m.Type]++
		}
		if doc.Metadata.Extra == nil {
			doc.Metadata.Extra = map[string]interface{}{}
		}
		doc.Metadata.Extra["pii_analysis"] = map[string]interface{}{
			"match_count":     len(matches),
			"matches_by_type": foundTypes,
		}

		if s.redact && len(matches) > 0 {
			doc.Content.Body = Redact(doc.Content.Body, matches)
			if doc.Content.Summary != "" {
				summaryMatches, err := s.detector.Detect(ctx, doc.Content.Summary)
				if err == nil {
					doc.Content.Summary = Redact(doc.Content.Summary, summaryMatches)
				}
			}
		}

		recordStep(s.steps, doc.ID, s.Name(), observability.StatusSuccess, map[string]interface{}{"match_count": len(matches)}, nil, "")
	}
	return batch, nil
}
