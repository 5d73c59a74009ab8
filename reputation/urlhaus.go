package reputation

import (
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
	URLhausName     = "urlhaus"
	URLhausEndpoint = "https://urlhaus-api.abuse.ch/v1/url/"
)

type urlhausResponse struct {
	QueryStatus string `json:"query_status"`
	URLStatus   string `json:"url_status"`
	Threat      string `json:"threat"`
}

// URLhaus checks URLs against the abuse.ch URLhaus lookup API.
type URLhaus struct {
	Endpoint   string
	AuthKey    string
	HTTPClient *http.Client
	log        logrus.FieldLogger
}

// NewURLhaus returns a URLhaus source. An empty endpoint selects the public
// API; authKey is sent as Auth-Key when set.
func NewURLhaus(endpoint, authKey string, client *http.Client, log logrus.FieldLogger) *URLhaus {
	if endpoint == "" {
		endpoint = URLhausEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &URLhaus{Endpoint: endpoint, AuthKey: authKey, HTTPClient: client, log: log}
}

func (u *URLhaus) Name() string { return URLhausName }

func (u *URLhaus) Check(ctx context.Context, rawURL string) Verdict {
	form := url.Values{"url": {rawURL}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return UnknownVerdict("request build failed")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if u.AuthKey != "" {
		req.Header.Set("Auth-Key", u.AuthKey)
	}

	log := u.log.WithField("source", URLhausName)

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("urlhaus request failed")
		return UnknownVerdict("API error")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(snippet),
		}).Warn("urlhaus returned an error status")
		return UnknownVerdict(fmt.Sprintf("API error: status %d", resp.StatusCode))
	}

	var data urlhausResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.WithError(err).Warn("urlhaus response could not be decoded")
		return UnknownVerdict("malformed response")
	}

	switch data.QueryStatus {
	case "ok":
		if data.URLStatus == "online" || strings.Contains(strings.ToLower(data.Threat), "phish") {
			return MatchedVerdict(fmt.Sprintf("URLhaus lists this URL (status: %s, threat: %s)", data.URLStatus, data.Threat))
		}
		return CleanVerdict(fmt.Sprintf("Listed but inactive (status: %s)", data.URLStatus))
	case "no_results":
		return CleanVerdict("Not listed")
	case "":
		log.Warn("urlhaus response has no query_status")
		return UnknownVerdict("missing query status")
	default:
		log.WithField("query_status", data.QueryStatus).Warn("urlhaus query was not answered")
		return UnknownVerdict("query status: " + data.QueryStatus)
	}
}
