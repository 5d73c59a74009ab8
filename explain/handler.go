package explain

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"phishing-detector/detection"
)

// Response is the body of POST /explain.
type Response struct {
	URL          string            `json:"url"`
	FinalVerdict detection.Verdict `json:"finalVerdict"`
	Score        int               `json:"score"`
	Explanation
}

// Handler serves the explanation endpoint.
type Handler struct {
	detector  *detection.Detector
	explainer *Explainer
	log       logrus.FieldLogger
}

func NewHandler(d *detection.Detector, e *Explainer, log logrus.FieldLogger) *Handler {
	return &Handler{detector: d, explainer: e, log: log}
}

// Explain handles POST /explain.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	raw, ok := detection.DecodeURL(w, r)
	if !ok {
		return
	}

	rep, err := h.detector.Detect(r.Context(), raw)
	if err != nil {
		if errors.Is(err, detection.ErrMissingURL) {
			detection.SendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.WithError(err).Error("detection failed")
		detection.SendError(w, "internal error", http.StatusInternalServerError)
		return
	}

	detection.SendJSON(w, http.StatusOK, Response{
		URL:          rep.URL.Href,
		FinalVerdict: rep.Verdict,
		Score:        rep.Score,
		Explanation:  h.explainer.Explain(r.Context(), rep),
	})
}
