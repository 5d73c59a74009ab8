package detection

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

const maxRequestBody = 64 << 10

// DetectRequest is the body of POST /detect.
type DetectRequest struct {
	URL string `json:"url"`
}

// ScanRecorder stores finished detections. Implementations must not fail
// the request; they log their own errors.
type ScanRecorder interface {
	RecordScan(r *http.Request, rep *Report)
}

// Handler serves the detection endpoint.
type Handler struct {
	detector *Detector
	recorder ScanRecorder
	log      logrus.FieldLogger
}

// NewHandler creates a handler. recorder may be nil.
func NewHandler(d *Detector, recorder ScanRecorder, log logrus.FieldLogger) *Handler {
	return &Handler{detector: d, recorder: recorder, log: log}
}

// Detect handles POST /detect.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	raw, ok := DecodeURL(w, r)
	if !ok {
		return
	}

	rep, err := h.detector.Detect(r.Context(), raw)
	if err != nil {
		if errors.Is(err, ErrMissingURL) {
			SendError(w, ErrMissingURL.Error(), http.StatusBadRequest)
			return
		}
		h.log.WithError(err).Error("detection failed")
		SendError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordScan(r, rep)
	}

	SendJSON(w, http.StatusOK, rep.Response())
}

// DecodeURL reads {"url": ...} from the request body. On failure it writes
// the 400 response and returns false.
func DecodeURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req DetectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		SendError(w, ErrMissingURL.Error(), http.StatusBadRequest)
		return "", false
	}
	return req.URL, true
}

// SendJSON writes v as a JSON response.
func SendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SendError writes {"error": message}.
func SendError(w http.ResponseWriter, message string, status int) {
	SendJSON(w, status, map[string]string{"error": message})
}
