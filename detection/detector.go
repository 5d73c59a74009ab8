package detection

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"phishing-detector/enrichment"
	"phishing-detector/heuristics"
	"phishing-detector/reputation"
)

// ErrMissingURL is returned for empty or whitespace-only input.
var ErrMissingURL = errors.New("url is required")

// ReputationChecker asks the threat feeds about a URL.
type ReputationChecker interface {
	Check(ctx context.Context, rawURL string) reputation.Results
}

// Enricher gathers WHOIS and DNS facts about a hostname.
type Enricher interface {
	Enrich(ctx context.Context, hostname string) enrichment.Result
}

// RuleEvaluator scores a URL with local heuristics.
type RuleEvaluator interface {
	Evaluate(u heuristics.NormalizedURL) heuristics.Evaluation
}

// Report is the evidence bundle of one detection. It is not modified after
// Detect returns it.
type Report struct {
	URL        heuristics.NormalizedURL
	Reputation reputation.Results
	Rules      heuristics.Features
	Score      int
	Enrichment *enrichment.Result
	Verdict    Verdict
	State      State
	Took       time.Duration
}

// ShortCircuited reports whether a threat feed decided the verdict.
func (r *Report) ShortCircuited() bool {
	return r.State == StateShortCircuitPhishing
}

// Detector runs the detection pipeline. It holds no per-request state and is
// safe for concurrent use.
type Detector struct {
	reputation ReputationChecker
	enricher   Enricher
	rules      RuleEvaluator
	thresholds Thresholds
	metrics    *Metrics
	log        logrus.FieldLogger
}

// NewDetector creates a detector with DefaultThresholds.
func NewDetector(rep ReputationChecker, enr Enricher, rules RuleEvaluator, log logrus.FieldLogger) *Detector {
	return &Detector{
		reputation: rep,
		enricher:   enr,
		rules:      rules,
		thresholds: DefaultThresholds(),
		log:        log,
	}
}

// WithMetrics sets the metrics sink and returns d.
func (d *Detector) WithMetrics(m *Metrics) *Detector {
	d.metrics = m
	return d
}

// Detect classifies raw. The only error is ErrMissingURL; every dependency
// failure is folded into the report as an unknown or default value.
func (d *Detector) Detect(ctx context.Context, raw string) (*Report, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMissingURL
	}

	start := time.Now()
	u := heuristics.Normalize(raw)
	log := d.log.WithField("url", u.Href)

	rep := &Report{URL: u}
	d.enter(log, rep, StateStart)

	d.enter(log, rep, StateExternalCheck)
	rep.Reputation = d.reputation.Check(ctx, u.Href)

	if rep.Reputation.AnyMatched() {
		d.enter(log, rep, StateShortCircuitPhishing)
		rep.Score = d.thresholds.ShortCircuitScore
		rep.Verdict = Phishing
		return d.finish(log, rep, start), nil
	}

	d.enter(log, rep, StateLocalAnalysis)
	ev := d.rules.Evaluate(u)
	rep.Rules = ev.Features
	rep.Score = ev.Score

	enr := d.enricher.Enrich(ctx, u.Hostname)
	rep.Enrichment = &enr
	d.enter(log, rep, StateEnriched)
	if enr.Whois.IsNewDomain {
		rep.Score += d.thresholds.NewDomainPenalty
	}

	d.enter(log, rep, StateFinal)
	rep.Verdict = d.thresholds.Classify(rep.Score)
	return d.finish(log, rep, start), nil
}

func (d *Detector) enter(log logrus.FieldLogger, rep *Report, s State) {
	rep.State = s
	log.WithFields(logrus.Fields{"state": s.String(), "score": rep.Score}).Debug("detection state")
}

func (d *Detector) finish(log logrus.FieldLogger, rep *Report, start time.Time) *Report {
	rep.Took = time.Since(start)
	d.metrics.ObserveDetection(rep.Verdict, rep.Took)

	log.WithFields(logrus.Fields{
		"verdict":  rep.Verdict.String(),
		"score":    rep.Score,
		"state":    rep.State.String(),
		"duration": rep.Took.String(),
	}).Info("detection finished")
	return rep
}
