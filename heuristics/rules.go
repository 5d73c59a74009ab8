package heuristics

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule names, in evaluation order.
const (
	RuleLongURL           = "longURL"
	RuleHasAt             = "hasAt"
	RuleHasIP             = "hasIP"
	RuleManyDashes        = "manyDashes"
	RuleUsesHTTPS         = "usesHTTPS"
	RuleSuspiciousTLD     = "suspiciousTld"
	RuleBrandInPath       = "brandInPath"
	RuleDomainLikeInPath  = "domainLikeInPath"
	RuleDeceptiveHostname = "deceptiveHostname"
)

const (
	weightLongURL           = 1
	weightHasAt             = 2
	weightHasIP             = 2
	weightManyDashes        = 1
	weightNoHTTPS           = 1
	weightSuspiciousTLD     = 1
	weightBrandInPath       = 2
	weightDomainLikeInPath  = 2
	weightDeceptiveHostname = 2

	maxURLLength = 75
	maxDashes    = 3
)

var (
	ipPattern         = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
	domainLikePattern = regexp.MustCompile(`(?i)[a-z0-9.-]+\.(?:com|net|org|co\.uk|co|in|info|biz|online|site|io|gov|edu)`)

	suspiciousTLDs = []string{".tk", ".ml", ".gq", ".cf", ".ga"}
)

// Rule is one heuristic check. Eval reports the feature value and whether the
// rule's weight is added to the score.
type Rule struct {
	Name        string
	Weight      int
	Description string
	Eval        func(s *Subject) (value any, triggered bool)
}

// Subject is the input shared by all rules for one evaluation.
type Subject struct {
	URL    NormalizedURL
	Brands BrandTable

	lower string
	tail  string
}

func newSubject(u NormalizedURL, brands BrandTable) *Subject {
	return &Subject{
		URL:    u,
		Brands: brands,
		lower:  strings.ToLower(u.Href),
		tail:   u.Tail(),
	}
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleLongURL, Weight: weightLongURL, Description: "URL longer than 75 characters", Eval: evalLongURL},
		{Name: RuleHasAt, Weight: weightHasAt, Description: "URL contains '@'", Eval: evalHasAt},
		{Name: RuleHasIP, Weight: weightHasIP, Description: "URL contains an IPv4 address", Eval: evalHasIP},
		{Name: RuleManyDashes, Weight: weightManyDashes, Description: "more than 3 dashes", Eval: evalManyDashes},
		{Name: RuleUsesHTTPS, Weight: weightNoHTTPS, Description: "not served over HTTPS", Eval: evalUsesHTTPS},
		{Name: RuleSuspiciousTLD, Weight: weightSuspiciousTLD, Description: "disposable top-level domain", Eval: evalSuspiciousTLD},
		{Name: RuleBrandInPath, Weight: weightBrandInPath, Description: "brand name in path of an unrelated host", Eval: evalBrandInPath},
		{Name: RuleDomainLikeInPath, Weight: weightDomainLikeInPath, Description: "foreign domain name embedded in path", Eval: evalDomainLikeInPath},
		{Name: RuleDeceptiveHostname, Weight: weightDeceptiveHostname, Description: "hostname imitates a brand", Eval: evalDeceptiveHostname},
	}
}

// Evaluation is the output of the rule engine for one URL.
type Evaluation struct {
	Features Features
	Score    int
}

// Engine evaluates a fixed rule table against URLs. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	rules  []Rule
	brands BrandTable
}

// NewEngine returns an engine with the default rules and the given brands.
func NewEngine(brands BrandTable) *Engine {
	return &Engine{rules: DefaultRules(), brands: brands}
}

// Evaluate runs every rule once. Every rule appears in the result even when
// it did not trigger; the score only ever grows.
func (e *Engine) Evaluate(u NormalizedURL) Evaluation {
	s := newSubject(u, e.brands)

	ev := Evaluation{Features: make(Features, 0, len(e.rules))}
	for _, r := range e.rules {
		value, triggered := r.Eval(s)
		if triggered {
			ev.Score += r.Weight
		}
		ev.Features = append(ev.Features, Feature{
			Name:      r.Name,
			Value:     value,
			Triggered: triggered,
			Weight:    r.Weight,
		})
	}
	return ev
}

func evalLongURL(s *Subject) (any, bool) {
	v := utf8.RuneCountInString(s.URL.Href) > maxURLLength
	return v, v
}

func evalHasAt(s *Subject) (any, bool) {
	v := strings.Contains(s.URL.Href, "@")
	return v, v
}

func evalHasIP(s *Subject) (any, bool) {
	v := ipPattern.MatchString(s.URL.Href)
	return v, v
}

func evalManyDashes(s *Subject) (any, bool) {
	v := strings.Count(s.URL.Href, "-") > maxDashes
	return v, v
}

// evalUsesHTTPS reports https usage; the rule triggers when it is absent.
func evalUsesHTTPS(s *Subject) (any, bool) {
	https := s.URL.IsHTTPS()
	return https, !https
}

func evalSuspiciousTLD(s *Subject) (any, bool) {
	for _, tld := range suspiciousTLDs {
		if strings.Contains(s.lower, tld+"/") || strings.HasSuffix(s.lower, tld) {
			return true, true
		}
	}
	return false, false
}

// evalBrandInPath flags the first brand found in the path tail whose path
// domains do not cover the hostname.
func evalBrandInPath(s *Subject) (any, bool) {
	for _, token := range s.Brands.Tokens() {
		if !strings.Contains(s.tail, token) {
			continue
		}
		if !s.Brands.OwnsPath(token, s.URL.Hostname) {
			return true, true
		}
	}
	return false, false
}

// evalDomainLikeInPath collects domain-shaped tokens from the path tail and
// triggers when any of them is foreign to the hostname.
func evalDomainLikeInPath(s *Subject) (any, bool) {
	matches := domainLikePattern.FindAllString(s.tail, -1)
	if len(matches) == 0 {
		return []string{}, false
	}

	domains := make([]string, len(matches))
	for i, m := range matches {
		domains[i] = strings.ToLower(m)
	}

	for _, d := range domains {
		if notInHostname(d, s.URL.Hostname) {
			return domains, true
		}
	}
	return []string{}, false
}

// evalDeceptiveHostname flags the first non-generic brand contained in the
// hostname when the hostname is not one of the brand's canonical domains.
func evalDeceptiveHostname(s *Subject) (any, bool) {
	host := s.URL.Hostname
	if host == "" {
		return false, false
	}
	for _, token := range s.Brands.Tokens() {
		if !strings.Contains(host, token) {
			continue
		}
		if s.Brands.IsGeneric(token) {
			continue
		}
		if !s.Brands.IsCanonical(token, host) {
			return true, true
		}
	}
	return false, false
}

// notInHostname reports whether domain d is neither the hostname nor a parent
// of it. An unknown hostname owns nothing.
func notInHostname(d, hostname string) bool {
	if hostname == "" {
		return true
	}
	return !hostMatches(hostname, d)
}
