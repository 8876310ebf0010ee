package api

import (
	"io"
	"net/http"

	"github.com/ryanhyunminbae/airtype/internal/features"
	"github.com/ryanhyunminbae/airtype/internal/gesture"
	"github.com/ryanhyunminbae/airtype/internal/source"
)

// maxFrameBytes bounds a classify request body.
const maxFrameBytes = 1 << 20

// ClassifyHandler scores a single frame against the prototype table without
// touching any session state.
type ClassifyHandler struct {
	prototypes *gesture.PrototypeClassifier
}

// NewClassifyHandler creates a new ClassifyHandler.
func NewClassifyHandler(prototypes *gesture.PrototypeClassifier) *ClassifyHandler {
	return &ClassifyHandler{prototypes: prototypes}
}

type classifyResponse struct {
	Prediction *gesture.Prediction `json:"prediction"`
	Candidates []gesture.Candidate `json:"candidates"`
}

// ServeHTTP handles POST /api/classify with one frame in the landmark wire format.
func (h *ClassifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	frame, err := source.DecodeFrame(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid frame")
		return
	}

	hand := frame.Hand()
	resp := classifyResponse{
		Prediction: h.prototypes.Classify(hand),
		Candidates: []gesture.Candidate{},
	}
	if hand.Complete() {
		resp.Candidates = h.prototypes.Rank(features.Heuristic(hand))
	}

	writeJSON(w, http.StatusOK, resp)
}
