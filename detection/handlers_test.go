package detection

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

type recordedScan struct {
	userAgent string
	report    *Report
}

type fakeRecorder struct {
	scans []recordedScan
}

func (f *fakeRecorder) RecordScan(r *http.Request, rep *Report) {
	f.scans = append(f.scans, recordedScan{userAgent: r.UserAgent(), report: rep})
}

func newTestHandler(rec ScanRecorder) *Handler {
	logger, _ := test.NewNullLogger()
	d, _ := newTestDetector(unknownBoth(), &fakeEnricher{whois: oldDomain})
	return NewHandler(d, rec, logger)
}

func TestHandler_Detect_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "url=http://x"},
		{"missing url", `{}`},
		{"empty url", `{"url":""}`},
		{"blank url", `{"url":"   "}`},
		{"wrong type", `{"url":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			h := newTestHandler(rec)

			req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.Detect(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != "url is required" {
				t.Errorf("error = %q", body["error"])
			}
			if len(rec.scans) != 0 {
				t.Error("rejected request was recorded")
			}
		})
	}
}

func TestHandler_Detect(t *testing.T) {
	rec := &fakeRecorder{}
	h := newTestHandler(rec)

	req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(`{"url":"http://93.184.216.34/login"}`))
	req.Header.Set("User-Agent", "test-agent/1.0")
	rr := httptest.NewRecorder()
	h.Detect(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		URL          string           `json:"url"`
		Score        int              `json:"score"`
		FinalVerdict string           `json:"finalVerdict"`
		Rules        map[string]any   `json:"rules"`
		APIVerdict   map[string]*bool `json:"apiVerdict"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.URL != "http://93.184.216.34/login" || body.Score != 3 || body.FinalVerdict != "Suspicious" {
		t.Errorf("body = %+v", body)
	}
	if body.Rules["hasIP"] != true {
		t.Errorf("rules.hasIP = %v", body.Rules["hasIP"])
	}
	if v, ok := body.APIVerdict["googleSafeBrowsing"]; !ok || v != nil {
		t.Errorf("apiVerdict.googleSafeBrowsing = %v, want null", v)
	}

	if len(rec.scans) != 1 || rec.scans[0].userAgent != "test-agent/1.0" || rec.scans[0].report.Verdict != Suspicious {
		t.Errorf("recorded scans = %+v", rec.scans)
	}
}

func TestHandler_Detect_NilRecorder(t *testing.T) {
	h := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(`{"url":"example.com"}`))
	rr := httptest.NewRecorder()
	h.Detect(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
