package openmask

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"goji.io"
	"goji.io/pat"

	"github.com/AlexLike/OpenMaskXR/logging"
)

type handler struct {
	runner  *Runner
	encoder QueryEncoder
	logger  logging.Logger
}

// NewHandler serves the model trigger on GET / and query encoding on POST /text-to-clip. A nil
// encoder disables query encoding.
func NewHandler(runner *Runner, encoder QueryEncoder, logger logging.Logger) http.Handler {
	h := &handler{runner: runner, encoder: encoder, logger: logger}
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/"), h.run)
	mux.HandleFunc(pat.Post("/text-to-clip"), h.textToClip)
	return mux
}

type statusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	RunID   string `json:"run_id,omitempty"`
}

type textRequest struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"CLIP_embedding"`
}

func (h *handler) run(w http.ResponseWriter, r *http.Request) {
	params := DefaultRunParams()
	query := r.URL.Query()
	if v := query.Get("intrinsicResolution"); v != "" {
		params.IntrinsicResolution = v
	}
	if v := query.Get("depthScale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 {
			h.writeJSON(w, http.StatusBadRequest, statusResponse{Message: "depthScale must be a positive number", Status: "error"})
			return
		}
		params.DepthScale = scale
	}

	h.logger.Info("model run requested")
	runID, err := h.runner.Run(r.Context(), params)
	var stepErr *StepError
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, statusResponse{Message: "model run finished", Status: "ok", RunID: runID})
	case errors.Is(err, ErrBusy):
		h.writeJSON(w, http.StatusServiceUnavailable, statusResponse{Message: ErrBusy.Error(), Status: "error"})
	case errors.As(err, &stepErr):
		h.writeJSON(w, http.StatusInternalServerError, statusResponse{Message: stepErr.Step + " failed", Status: "error"})
	default:
		h.writeJSON(w, http.StatusInternalServerError, statusResponse{Message: err.Error(), Status: "error"})
	}
}

func (h *handler) textToClip(w http.ResponseWriter, r *http.Request) {
	if h.encoder == nil {
		h.writeJSON(w, http.StatusNotImplemented, statusResponse{Message: "no query encoder configured", Status: "error"})
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		h.writeJSON(w, http.StatusBadRequest, statusResponse{Message: "No text part in the request", Status: "error"})
		return
	}
	embedding, err := h.encoder.Encode(r.Context(), req.Text)
	if err != nil {
		h.logger.Errorw("cannot encode query", "text", req.Text, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "query encoding failed", Status: "error"})
		return
	}
	h.writeJSON(w, http.StatusOK, embeddingResponse{Embedding: embedding})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debugw("cannot write response", "error", err)
	}
}
