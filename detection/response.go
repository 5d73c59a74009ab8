package detection

import (
	"phishing-detector/heuristics"
	"phishing-detector/reputation"
)

// Response is the JSON body returned for a detection.
type Response struct {
	URL          string              `json:"url"`
	APIVerdict   reputation.Results  `json:"apiVerdict"`
	APIReasons   reputation.Reasons  `json:"apiReasons"`
	Rules        heuristics.Features `json:"rules"`
	Score        int                 `json:"score"`
	Whois        any                 `json:"whois"`
	DNS          any                 `json:"dns"`
	FinalVerdict Verdict             `json:"finalVerdict"`
}

type empty struct{}

// Response renders the report. A short-circuited report has empty rules,
// whois and dns objects; a report without a hostname has a null dns.
func (r *Report) Response() Response {
	resp := Response{
		URL:          r.URL.Href,
		APIVerdict:   r.Reputation,
		APIReasons:   r.Reputation.Reasons(),
		Rules:        r.Rules,
		Score:        r.Score,
		Whois:        empty{},
		DNS:          empty{},
		FinalVerdict: r.Verdict,
	}
	if r.Enrichment != nil {
		resp.Whois = r.Enrichment.Whois
		resp.DNS = r.Enrichment.DNS
	}
	return resp
}
