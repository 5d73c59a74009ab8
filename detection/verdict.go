package detection

import "encoding/json"

// Verdict is the final classification of a URL.
type Verdict int

const (
	LikelySafe Verdict = iota
	Suspicious
	Phishing
)

func (v Verdict) String() string {
	switch v {
	case Phishing:
		return "Phishing"
	case Suspicious:
		return "Suspicious"
	default:
		return "Likely Safe"
	}
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// State is a step of the detection pipeline.
type State int

const (
	StateStart State = iota
	StateExternalCheck
	StateShortCircuitPhishing
	StateLocalAnalysis
	StateEnriched
	StateFinal
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateExternalCheck:
		return "external_check"
	case StateShortCircuitPhishing:
		return "short_circuit_phishing"
	case StateLocalAnalysis:
		return "local_analysis"
	case StateEnriched:
		return "enriched"
	case StateFinal:
		return "final"
	default:
		return "unknown"
	}
}
