package reputation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestSafeBrowsing_MissingKeySkipsRequest(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	sb := NewSafeBrowsing("", srv.Client(), logger)
	sb.Endpoint = srv.URL

	v := sb.Check(context.Background(), "http://example.com")
	if v.Outcome != Unknown {
		t.Errorf("Outcome = %s, want unknown", v.Outcome)
	}
	if called {
		t.Error("request sent without an API key")
	}
}

func TestSafeBrowsing_Check(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    Outcome
		wantLog bool
	}{
		{"match", 200, `{"matches":[{"threatType":"SOCIAL_ENGINEERING","platformType":"ANY_PLATFORM","threat":{"url":"http://evil.tk/"}}]}`, Matched, false},
		{"empty object", 200, `{}`, Clean, false},
		{"empty matches", 200, `{"matches":[]}`, Clean, false},
		{"forbidden", 403, `{"error":{"code":403,"message":"API key not valid"}}`, Unknown, true},
		{"garbage", 200, `<html>`, Unknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got safeBrowsingRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if r.URL.Query().Get("key") != "k123" {
					t.Errorf("key = %q", r.URL.Query().Get("key"))
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode request: %v", err)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			logger, hook := test.NewNullLogger()
			sb := NewSafeBrowsing("k123", srv.Client(), logger)
			sb.Endpoint = srv.URL

			v := sb.Check(context.Background(), "http://evil.tk/")
			if v.Outcome != tt.want {
				t.Errorf("Outcome = %s, want %s (%s)", v.Outcome, tt.want, v.Reason)
			}
			if len(got.ThreatInfo.ThreatEntries) != 1 || got.ThreatInfo.ThreatEntries[0].URL != "http://evil.tk/" {
				t.Errorf("threatEntries = %+v", got.ThreatInfo.ThreatEntries)
			}
			if len(got.ThreatInfo.ThreatTypes) != 4 {
				t.Errorf("threatTypes = %v", got.ThreatInfo.ThreatTypes)
			}

			warned := hook.LastEntry() != nil && hook.LastEntry().Level == logrus.WarnLevel
			if warned != tt.wantLog {
				t.Errorf("warning logged = %v, want %v", warned, tt.wantLog)
			}
		})
	}
}

func TestSafeBrowsing_TransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	logger, hook := test.NewNullLogger()
	sb := NewSafeBrowsing("secret-key", srv.Client(), logger)
	sb.Endpoint = srv.URL

	if v := sb.Check(context.Background(), "http://example.com"); v.Outcome != Unknown {
		t.Fatalf("Outcome = %s, want unknown", v.Outcome)
	}
	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("transport error not logged")
	}
	if err, _ := entry.Data[logrus.ErrorKey].(error); err == nil || strings.Contains(err.Error(), "secret-key") {
		t.Errorf("logged error = %v, want key redacted", entry.Data[logrus.ErrorKey])
	}
}

func TestURLhaus_Check(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Outcome
	}{
		{"online", 200, `{"query_status":"ok","url_status":"online","threat":"malware_download"}`, Matched},
		{"phishing offline", 200, `{"query_status":"ok","url_status":"offline","threat":"Phishing"}`, Matched},
		{"listed offline", 200, `{"query_status":"ok","url_status":"offline","threat":"malware_download"}`, Clean},
		{"not listed", 200, `{"query_status":"no_results"}`, Clean},
		{"invalid url", 200, `{"query_status":"invalid_url"}`, Unknown},
		{"no status", 200, `{}`, Unknown},
		{"server error", 502, `bad gateway`, Unknown},
		{"not json", 200, `nope`, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Errorf("ParseForm: %v", err)
				}
				if got := r.PostForm.Get("url"); got != "http://evil.example/a b?x=1&y=2" {
					t.Errorf("url form value = %q", got)
				}
				if r.Header.Get("Accept") != "application/json" {
					t.Errorf("Accept = %q", r.Header.Get("Accept"))
				}
				if r.Header.Get("Auth-Key") != "abc" {
					t.Errorf("Auth-Key = %q", r.Header.Get("Auth-Key"))
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			logger, _ := test.NewNullLogger()
			uh := NewURLhaus(srv.URL, "abc", srv.Client(), logger)

			v := uh.Check(context.Background(), "http://evil.example/a b?x=1&y=2")
			if v.Outcome != tt.want {
				t.Errorf("Outcome = %s, want %s (%s)", v.Outcome, tt.want, v.Reason)
			}
		})
	}
}

func TestURLhaus_NoAuthKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Auth-Key"]; ok {
			t.Error("Auth-Key header sent without a key")
		}
		io.WriteString(w, `{"query_status":"no_results"}`)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	if v := NewURLhaus(srv.URL, "", srv.Client(), logger).Check(context.Background(), "http://x.example"); v.Outcome != Clean {
		t.Errorf("Outcome = %s, want clean", v.Outcome)
	}
}
