package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"phishing-detector/detection"
	"phishing-detector/heuristics"
	"phishing-detector/reputation"
)

const (
	SourceGemini   = "gemini"
	SourceFallback = "fallback"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// Explanation is a plain-language summary of a finished detection.
type Explanation struct {
	Text   string `json:"explanation"`
	Source string `json:"source"`
}

// Explainer summarizes reports, using a model when one is configured and a
// fixed template otherwise.
type Explainer struct {
	gen Generator
	log logrus.FieldLogger
}

// NewExplainer creates an explainer. gen may be nil.
func NewExplainer(gen Generator, log logrus.FieldLogger) *Explainer {
	return &Explainer{gen: gen, log: log}
}

// Explain never fails; model errors fall back to the template.
func (e *Explainer) Explain(ctx context.Context, rep *detection.Report) Explanation {
	if e.gen == nil {
		return Explanation{Text: Fallback(rep), Source: SourceFallback}
	}

	body, err := json.MarshalIndent(rep.Response(), "", "  ")
	if err != nil {
		return Explanation{Text: Fallback(rep), Source: SourceFallback}
	}

	text, err := e.gen.Generate(ctx, fmt.Sprintf(ExplainPrompt, body), SystemPrompt)
	if err != nil || strings.TrimSpace(text) == "" {
		e.log.WithError(err).WithField("url", rep.URL.Href).Warn("model explanation unavailable, using template")
		return Explanation{Text: Fallback(rep), Source: SourceFallback}
	}
	return Explanation{Text: strings.TrimSpace(text), Source: SourceGemini}
}

var ruleDescriptions = func() map[string]string {
	m := make(map[string]string)
	for _, r := range heuristics.DefaultRules() {
		m[r.Name] = r.Description
	}
	return m
}()

// Fallback builds the template explanation for rep.
func Fallback(rep *detection.Report) string {
	var b strings.Builder

	switch rep.Verdict {
	case detection.Phishing:
		b.WriteString("This URL is listed as malicious by a threat-intelligence feed")
		var flagged []string
		for _, r := range rep.Reputation {
			if r.Verdict.Outcome == reputation.Matched {
				flagged = append(flagged, r.Verdict.Reason)
			}
		}
		if len(flagged) > 0 {
			b.WriteString(" (" + strings.Join(flagged, "; ") + ")")
		}
		b.WriteString(". Do not open it or enter any information.")
		return b.String()
	case detection.Suspicious:
		fmt.Fprintf(&b, "This URL looks suspicious (score %d).", rep.Score)
	default:
		fmt.Fprintf(&b, "No strong warning signs were found (score %d).", rep.Score)
	}

	var reasons []string
	for _, name := range rep.Rules.Triggered() {
		reasons = append(reasons, ruleDescriptions[name])
	}
	if rep.Enrichment != nil && rep.Enrichment.Whois.IsNewDomain {
		reasons = append(reasons, "domain registered in the last 30 days")
	}
	if len(reasons) > 0 {
		b.WriteString(" Signals: " + strings.Join(reasons, ", ") + ".")
	}
	b.WriteString(" " + rep.Rules.Reason() + ".")

	var unavailable []string
	for _, r := range rep.Reputation {
		if r.Verdict.Outcome == reputation.Unknown {
			unavailable = append(unavailable, r.Source)
		}
	}
	if len(unavailable) > 0 {
		b.WriteString(" Not checked: " + strings.Join(unavailable, ", ") + ".")
	}

	if rep.Verdict == detection.Suspicious {
		b.WriteString(" Avoid entering passwords or payment details on this site.")
	} else {
		b.WriteString(" Stay careful with links you did not expect.")
	}
	return b.String()
}
