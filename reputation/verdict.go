package reputation

import (
	"bytes"
	"encoding/json"
)

// Outcome is the tri-state result of one threat-feed lookup.
type Outcome int

const (
	// Unknown means the feed could not give an answer.
	Unknown Outcome = iota
	// Clean means the feed was asked and does not list the URL.
	Clean
	// Matched means the feed lists the URL as malicious.
	Matched
)

func (o Outcome) String() string {
	switch o {
	case Clean:
		return "clean"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// Verdict is an Outcome plus the reason the source gave for it.
type Verdict struct {
	Outcome Outcome
	Reason  string
}

func MatchedVerdict(reason string) Verdict { return Verdict{Outcome: Matched, Reason: reason} }
func CleanVerdict(reason string) Verdict   { return Verdict{Outcome: Clean, Reason: reason} }
func UnknownVerdict(reason string) Verdict { return Verdict{Outcome: Unknown, Reason: reason} }

// Bool returns nil for Unknown, otherwise whether the URL matched.
func (v Verdict) Bool() *bool {
	if v.Outcome == Unknown {
		return nil
	}
	b := v.Outcome == Matched
	return &b
}

// MarshalJSON renders the verdict as true, false or null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Bool())
}

// Result is the verdict of one named source.
type Result struct {
	Source  string
	Verdict Verdict
}

// Results holds one entry per source in the order the gateway was built with.
// It marshals to an object of tri-state values keyed by source name.
type Results []Result

// Get returns the verdict for source.
func (rs Results) Get(source string) (Verdict, bool) {
	for _, r := range rs {
		if r.Source == source {
			return r.Verdict, true
		}
	}
	return Verdict{}, false
}

// AnyMatched reports whether at least one source matched.
func (rs Results) AnyMatched() bool {
	for _, r := range rs {
		if r.Verdict.Outcome == Matched {
			return true
		}
	}
	return false
}

// Reasons returns the per-source reasons, keyed the same way as Results.
func (rs Results) Reasons() Reasons {
	return Reasons(rs)
}

func (rs Results) MarshalJSON() ([]byte, error) {
	return marshalOrdered(rs, func(r Result) any { return r.Verdict })
}

// Reasons marshals to an object of reason strings keyed by source name.
type Reasons Results

func (rs Reasons) MarshalJSON() ([]byte, error) {
	return marshalOrdered(Results(rs), func(r Result) any { return r.Verdict.Reason })
}

func marshalOrdered(rs Results, value func(Result) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Source)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(value(r))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
