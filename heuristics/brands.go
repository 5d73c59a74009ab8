package heuristics

import "strings"

// Brand is a commonly impersonated name and the domains it legitimately owns.
// Generic brands are words too common to flag on their own inside a hostname.
// PathDomains is the narrower list the path rule accepts; when empty the path
// rule accepts only token+".com".
type Brand struct {
	Token       string
	Domains     []string
	PathDomains []string
	Generic     bool
}

// BrandTable is an ordered, read-only brand lookup. Scan order matters: the
// brand rules stop at the first brand they flag.
type BrandTable struct {
	brands []Brand
	index  map[string]int
}

// NewBrandTable copies brands into a table. Tokens and domains are lowercased.
func NewBrandTable(brands []Brand) BrandTable {
	t := BrandTable{
		brands: make([]Brand, 0, len(brands)),
		index:  make(map[string]int, len(brands)),
	}
	for _, b := range brands {
		token := strings.ToLower(strings.TrimSpace(b.Token))
		if token == "" {
			continue
		}
		if _, dup := t.index[token]; dup {
			continue
		}
		t.index[token] = len(t.brands)
		t.brands = append(t.brands, Brand{
			Token:       token,
			Domains:     lowerDomains(b.Domains),
			PathDomains: lowerDomains(b.PathDomains),
			Generic:     b.Generic,
		})
	}
	return t
}

// DefaultBrands returns the built-in brand table.
func DefaultBrands() BrandTable {
	return NewBrandTable([]Brand{
		{Token: "paypal", Domains: []string{"paypal.com", "paypal.co.uk"}, PathDomains: []string{"paypal.com", "paypal.co.uk"}},
		{Token: "bank", Generic: true},
		{Token: "hdfc", Domains: []string{"hdfcbank.com", "hdfc.com"}},
		{Token: "icicibank", Domains: []string{"icicibank.com"}},
		{Token: "sbi", Domains: []string{"sbi.co.in", "onlinesbi.com"}},
		{Token: "google", Domains: []string{"google.com", "google.co.uk", "google.in", "google.ca"}},
		{Token: "facebook", Domains: []string{"facebook.com", "fb.com"}},
		{Token: "amazon", Domains: []string{"amazon.com", "amazon.co.uk", "amazon.in", "amazon.ca", "amazon.de", "amazon.fr", "amazon.es", "amazon.it"}},
		{Token: "netflix", Domains: []string{"netflix.com"}},
		{Token: "apple", Domains: []string{"apple.com", "icloud.com"}},
		{Token: "microsoft", Domains: []string{"microsoft.com", "microsoftonline.com"}},
	})
}

// Tokens returns the brand tokens in scan order.
func (t BrandTable) Tokens() []string {
	out := make([]string, len(t.brands))
	for i, b := range t.brands {
		out[i] = b.Token
	}
	return out
}

// Lookup returns a copy of the brand entry for token.
func (t BrandTable) Lookup(token string) (Brand, bool) {
	i, ok := t.index[strings.ToLower(token)]
	if !ok {
		return Brand{}, false
	}
	b := t.brands[i]
	b.Domains = append([]string(nil), b.Domains...)
	b.PathDomains = append([]string(nil), b.PathDomains...)
	return b, true
}

// CanonicalDomains returns the domains that legitimately carry token. A brand
// without its own domains, or one missing from the table, owns token+".com".
func (t BrandTable) CanonicalDomains(token string) []string {
	token = strings.ToLower(token)
	if b, ok := t.Lookup(token); ok && len(b.Domains) > 0 {
		return b.Domains
	}
	return []string{token + ".com"}
}

// IsCanonical reports whether hostname is, or is a subdomain of, one of the
// brand's canonical domains.
func (t BrandTable) IsCanonical(token, hostname string) bool {
	hostname = strings.ToLower(hostname)
	for _, d := range t.CanonicalDomains(token) {
		if hostMatches(hostname, d) {
			return true
		}
	}
	return false
}

// OwnsPath reports whether hostname may carry token in its path. Only brands
// with PathDomains accept more than token+".com".
func (t BrandTable) OwnsPath(token, hostname string) bool {
	hostname = strings.ToLower(hostname)
	domains := []string{strings.ToLower(token) + ".com"}
	if b, ok := t.Lookup(token); ok && len(b.PathDomains) > 0 {
		domains = b.PathDomains
	}
	for _, d := range domains {
		if hostMatches(hostname, d) {
			return true
		}
	}
	return false
}

// IsGeneric reports whether token is excluded from hostname impersonation checks.
func (t BrandTable) IsGeneric(token string) bool {
	b, ok := t.Lookup(token)
	return ok && b.Generic
}

// hostMatches reports whether hostname equals domain or ends with "."+domain.
func hostMatches(hostname, domain string) bool {
	return hostname == domain || strings.HasSuffix(hostname, "."+domain)
}

func lowerDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(d)))
	}
	return out
}
