package heuristics

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// NormalizedURL is a submitted URL after trimming and scheme defaulting.
// Hostname is empty only when the URL could not be parsed.
type NormalizedURL struct {
	Raw      string `json:"raw"`
	Href     string `json:"href"`
	Scheme   string `json:"scheme"`
	Hostname string `json:"hostname"`
	Path     string `json:"path"`
	Query    string `json:"query"`
	Fragment string `json:"fragment"`
}

// Normalize trims raw and prepends http:// when it does not already start
// with an http-family scheme. It never fails: a URL whose authority cannot be
// parsed yields an empty Hostname and empty path components.
func Normalize(raw string) NormalizedURL {
	trimmed := strings.TrimSpace(raw)

	href := trimmed
	if !strings.HasPrefix(strings.ToLower(trimmed), "http") {
		href = "http://" + trimmed
	}

	n := NormalizedURL{Raw: raw, Href: href}

	u, err := url.Parse(href)
	if err != nil {
		return splitURL(n)
	}

	n.Scheme = strings.ToLower(u.Scheme)
	n.Hostname = asciiHostname(u.Hostname())
	if n.Hostname == "" {
		return n
	}

	n.Path = u.EscapedPath()
	if n.Path == "" {
		n.Path = "/"
	}
	n.Query = u.RawQuery
	n.Fragment = u.EscapedFragment()
	return n
}

// splitURL handles hrefs that url.Parse rejects for reasons browsers
// tolerate, such as a stray '%' in the path. The authority is cut out by hand
// and must still parse on its own; path, query and fragment are kept as typed.
func splitURL(n NormalizedURL) NormalizedURL {
	scheme, rest, ok := strings.Cut(n.Href, "://")
	if !ok || scheme == "" {
		return n
	}

	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	authority, rest := rest[:end], rest[end:]

	u, err := url.Parse(scheme + "://" + authority + "/")
	if err != nil {
		return n
	}
	host := asciiHostname(u.Hostname())
	if host == "" {
		return n
	}

	rest, fragment, _ := strings.Cut(rest, "#")
	path, query, _ := strings.Cut(rest, "?")
	if path == "" {
		path = "/"
	}

	n.Scheme = strings.ToLower(u.Scheme)
	n.Hostname = host
	n.Path = path
	n.Query = query
	n.Fragment = fragment
	return n
}

// Tail is the lowercased path with "?query" and "#fragment" appended when
// present. Brand and domain-in-path rules look only at this part.
func (n NormalizedURL) Tail() string {
	var b strings.Builder
	b.WriteString(n.Path)
	if n.Query != "" {
		b.WriteString("?")
		b.WriteString(n.Query)
	}
	if n.Fragment != "" {
		b.WriteString("#")
		b.WriteString(n.Fragment)
	}
	return strings.ToLower(b.String())
}

// IsHTTPS reports whether the normalized URL uses the https scheme.
func (n NormalizedURL) IsHTTPS() bool {
	return strings.HasPrefix(strings.ToLower(n.Href), "https://")
}

// asciiHostname lowercases host and converts internationalized names to
// punycode, keeping the lowercased form when conversion fails.
func asciiHostname(host string) string {
	host = strings.ToLower(host)
	if host == "" || isASCII(host) {
		return host
	}
	if converted, err := idna.Lookup.ToASCII(host); err == nil && converted != "" {
		return converted
	}
	return host
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
