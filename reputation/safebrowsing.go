package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	SafeBrowsingName     = "googleSafeBrowsing"
	SafeBrowsingEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

	maxLoggedBody = 512
)

type safeBrowsingRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string      `json:"threatTypes"`
		PlatformTypes    []string      `json:"platformTypes"`
		ThreatEntryTypes []string      `json:"threatEntryTypes"`
		ThreatEntries    []threatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type safeBrowsingResponse struct {
	Matches []struct {
		ThreatType   string      `json:"threatType"`
		PlatformType string      `json:"platformType"`
		Threat       threatEntry `json:"threat"`
	} `json:"matches"`
}

// SafeBrowsing checks URLs against the Google Safe Browsing v4 Lookup API.
type SafeBrowsing struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
	log        logrus.FieldLogger
}

// NewSafeBrowsing returns a Safe Browsing source. With an empty key every
// check is Unknown and no request is sent.
func NewSafeBrowsing(apiKey string, client *http.Client, log logrus.FieldLogger) *SafeBrowsing {
	if client == nil {
		client = http.DefaultClient
	}
	return &SafeBrowsing{
		APIKey:     apiKey,
		Endpoint:   SafeBrowsingEndpoint,
		HTTPClient: client,
		log:        log,
	}
}

func (s *SafeBrowsing) Name() string { return SafeBrowsingName }

func (s *SafeBrowsing) Check(ctx context.Context, rawURL string) Verdict {
	if s.APIKey == "" {
		return UnknownVerdict("API key missing")
	}

	var body safeBrowsingRequest
	body.Client.ClientID = "phishing-detector"
	body.Client.ClientVersion = "1.0"
	body.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"}
	body.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	body.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	body.ThreatInfo.ThreatEntries = []threatEntry{{URL: rawURL}}

	payload, err := json.Marshal(body)
	if err != nil {
		return UnknownVerdict("request encoding failed")
	}

	endpoint := s.Endpoint + "?key=" + url.QueryEscape(s.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return UnknownVerdict("request build failed")
	}
	req.Header.Set("Content-Type", "application/json")

	log := s.log.WithField("source", SafeBrowsingName)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		log.WithError(redactKey(err, s.APIKey)).Warn("safe browsing request failed")
		return UnknownVerdict("API error")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(snippet),
		}).Warn("safe browsing returned an error status")
		return UnknownVerdict(fmt.Sprintf("API error: status %d", resp.StatusCode))
	}

	var result safeBrowsingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.WithError(err).Warn("safe browsing response could not be decoded")
		return UnknownVerdict("malformed response")
	}

	if len(result.Matches) > 0 {
		return MatchedVerdict("Google flagged this URL as " + result.Matches[0].ThreatType)
	}
	return CleanVerdict("No threats")
}

// redactKey keeps the API key out of logged transport errors, which quote the
// request URL.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED")
	return fmt.Errorf("%s", strings.ReplaceAll(msg, key, "REDACTED"))
}
