package enrichment

import (
	"strings"
	"time"
)

const (
	// NewDomainAge is the registration age below which a domain counts as new.
	NewDomainAge = 30 * 24 * time.Hour

	isoMillis = "2006-01-02T15:04:05.000Z"
)

var creationLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"02-Jan-2006 15:04:05 MST",
	"2006.01.02",
	"2006.01.02 15:04:05",
	"2006/01/02",
	"02.01.2006",
	"January 2 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.UnixDate,
	time.ANSIC,
}

// ParseCreationDate tries every known WHOIS date layout against raw.
func ParseCreationDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, l := range creationLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RegistrationAge formats raw as an ISO-8601 UTC timestamp and reports
// whether the domain was registered less than NewDomainAge before now. An
// unparseable date is returned unchanged and never counts as new.
func RegistrationAge(raw string, now time.Time) (string, bool) {
	created, ok := ParseCreationDate(raw)
	if !ok {
		return raw, false
	}
	return created.UTC().Format(isoMillis), now.Sub(created) < NewDomainAge
}
