package detection

// Thresholds holds the numbers the aggregator classifies with.
type Thresholds struct {
	SuspiciousMin     int `json:"suspicious_min"`      // Default: 3
	ShortCircuitScore int `json:"short_circuit_score"` // Default: 10
	NewDomainPenalty  int `json:"new_domain_penalty"`  // Default: 2
}

// DefaultThresholds returns default thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		SuspiciousMin:     3,
		ShortCircuitScore: 10,
		NewDomainPenalty:  2,
	}
}

// Classify maps a locally computed score to Suspicious or LikelySafe.
func (t Thresholds) Classify(score int) Verdict {
	if score >= t.SuspiciousMin {
		return Suspicious
	}
	return LikelySafe
}
