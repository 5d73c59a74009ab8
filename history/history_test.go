package history

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"phishing-detector/detection"
	"phishing-detector/enrichment"
	"phishing-detector/heuristics"
	"phishing-detector/reputation"
)

const (
	chromeUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:115.0) Gecko/20100101 Firefox/115.0"
)

func TestClientFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    ClientDetails
	}{
		{
			name:    "forwarded",
			headers: map[string]string{"X-Forwarded-For": " 198.51.100.7 , 10.0.0.1", "User-Agent": chromeUA, "CF-IPCountry": "IN"},
			remote:  "10.0.0.1:5555",
			want:    ClientDetails{IPAddress: "198.51.100.7", Browser: "Chrome 120.0.0.0", Location: "IN"},
		},
		{
			name:    "peer address",
			headers: map[string]string{"User-Agent": firefoxUA},
			remote:  "203.0.113.4:40000",
			want:    ClientDetails{IPAddress: "203.0.113.4", Browser: "Firefox 115.0", Location: "unknown"},
		},
		{
			name: "nothing known",
			want: ClientDetails{IPAddress: "unknown", Browser: "unknown", Location: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/detect", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientFromRequest(r); got != tt.want {
				t.Errorf("ClientFromRequest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func localReport() *detection.Report {
	u := heuristics.Normalize("http://example.tk/login")
	ev := heuristics.NewEngine(heuristics.DefaultBrands()).Evaluate(u)
	return &detection.Report{
		URL: u,
		Reputation: reputation.Results{
			{Source: reputation.SafeBrowsingName, Verdict: reputation.UnknownVerdict("API key missing")},
			{Source: reputation.URLhausName, Verdict: reputation.CleanVerdict("Not listed")},
		},
		Rules: ev.Features,
		Score: ev.Score,
		Enrichment: &enrichment.Result{
			Whois: enrichment.Whois{Registrar: "R", CreationDate: "2001-01-01T00:00:00.000Z"},
			DNS:   &enrichment.DNS{},
		},
		Verdict: detection.LikelySafe,
		State:   detection.StateFinal,
	}
}

func TestNewScan(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewScan(localReport(), ClientDetails{IPAddress: "1.2.3.4"}, now)

	if s.URL != "http://example.tk/login" || s.IsPhishing || s.Verdict != "Likely Safe" || s.Score != 2 {
		t.Errorf("scan = %+v", s)
	}
	data, _ := json.Marshal(s.ScanResults)
	want := `{"google_safe_browsing":null,"urlhaus":false,"whois_suspicious":false,"dns_suspicious":true,"pattern_suspicious":true}`
	if string(data) != want {
		t.Errorf("scan results = %s, want %s", data, want)
	}
	if !s.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %s", s.CreatedAt)
	}
}

func TestNewScan_ShortCircuit(t *testing.T) {
	rep := &detection.Report{
		URL: heuristics.Normalize("http://evil.tk"),
		Reputation: reputation.Results{
			{Source: reputation.SafeBrowsingName, Verdict: reputation.MatchedVerdict("flagged")},
			{Source: reputation.URLhausName, Verdict: reputation.UnknownVerdict("API error")},
		},
		Score:   10,
		Verdict: detection.Phishing,
		State:   detection.StateShortCircuitPhishing,
	}

	s := NewScan(rep, ClientDetails{}, time.Now())
	if !s.IsPhishing {
		t.Error("IsPhishing = false")
	}
	data, _ := json.Marshal(s.ScanResults)
	want := `{"google_safe_browsing":true,"urlhaus":null,"whois_suspicious":null,"dns_suspicious":null,"pattern_suspicious":null}`
	if string(data) != want {
		t.Errorf("scan results = %s, want %s", data, want)
	}
}

type fakeStore struct {
	scans []Scan
	err   error
}

func (f *fakeStore) Insert(ctx context.Context, s Scan) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.scans = append(f.scans, s)
	return f.err
}

func (f *fakeStore) Close() {}

func TestRecorder_RecordScan(t *testing.T) {
	store := &fakeStore{}
	logger, hook := test.NewNullLogger()
	rec := NewRecorder(store, time.Second, logger)

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest("POST", "/detect", nil).WithContext(ctx)
	r.Header.Set("User-Agent", chromeUA)
	cancel()

	rec.RecordScan(r, localReport())

	if len(store.scans) != 1 || store.scans[0].Client.Browser != "Chrome 120.0.0.0" {
		t.Fatalf("stored = %+v", store.scans)
	}
	if len(hook.AllEntries()) != 0 {
		t.Errorf("unexpected log entries: %d", len(hook.AllEntries()))
	}
}

func TestRecorder_LogsStoreErrors(t *testing.T) {
	store := &fakeStore{err: errors.New("connection reset")}
	logger, hook := test.NewNullLogger()
	rec := NewRecorder(store, time.Second, logger)

	rec.RecordScan(httptest.NewRequest("POST", "/detect", nil), localReport())

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("last entry = %+v, want warning", entry)
	}
	if entry.Data["verdict"] != "Likely Safe" {
		t.Errorf("verdict field = %v", entry.Data["verdict"])
	}
}

func TestNewRecorder_NilStore(t *testing.T) {
	logger, _ := test.NewNullLogger()
	NewRecorder(nil, time.Second, logger).RecordScan(httptest.NewRequest("POST", "/detect", nil), localReport())
}

func TestMigrationsFS(t *testing.T) {
	data, err := fs.ReadFile(MigrationsFS(), "00001_create_url_scans.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("migration is empty")
	}
}
