package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/robeeeeeet/bottle-keep/internal/ai"
	"github.com/robeeeeeet/bottle-keep/internal/cache"
	"github.com/robeeeeeet/bottle-keep/internal/validate"
)

// Analyzer is the identification backend; split out so tests can stub it.
type Analyzer interface {
	Analyze(ctx context.Context, q ai.Query) (*ai.Result, error)
}

type IdentifyHandler struct {
	AI Analyzer
	// Identical text queries within a short window hit the cache instead of
	// the model. Image queries are never cached (every capture differs).
	TextCache *cache.TTLCache[string, []byte]
}

func NewIdentifyHandler(a Analyzer) *IdentifyHandler {
	return &IdentifyHandler{AI: a, TextCache: cache.NewTTL[string, []byte](5 * time.Minute)}
}

// Identify: POST /v1/identify
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	type reqT struct {
		ImageURL     string `json:"imageUrl" validate:"omitempty,url"`
		ImageBase64  string `json:"imageBase64"`
		Text         string `json:"text" validate:"omitempty,max=200"`
		Type         string `json:"type" validate:"omitempty,max=50"`
		RejectedName string `json:"rejectedName" validate:"omitempty,max=200"`
	}
	var body reqT
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(body); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	if body.ImageURL == "" && body.ImageBase64 == "" && body.Text == "" {
		writeError(w, http.StatusBadRequest, "imageUrl, imageBase64, or text is required")
		return
	}

	q := ai.Query{
		ImageURL:     body.ImageURL,
		ImageBase64:  body.ImageBase64,
		Text:         body.Text,
		Type:         body.Type,
		RejectedName: body.RejectedName,
	}

	cacheKey := ""
	if !q.HasImage() && q.RejectedName == "" {
		cacheKey = q.Text + "\x00" + q.Type
		if b, ok := h.TextCache.Get(cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(b)
			return
		}
	}

	res, err := h.AI.Analyze(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if cacheKey != "" {
		if b, err := json.Marshal(res); err == nil {
			h.TextCache.Set(cacheKey, b)
		}
	}
	writeJSON(w, http.StatusOK, res)
}
