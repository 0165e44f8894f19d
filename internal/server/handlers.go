package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/byteowlz/kaextract/internal/logx"
	"github.com/byteowlz/kaextract/internal/model"
	"github.com/byteowlz/kaextract/internal/target"
	adextract "github.com/byteowlz/kaextract/pkg/extractor"
)

type handlers struct {
	ex      Extractor
	timeout time.Duration
	now     func() time.Time
}

var errorCodes = map[int]string{
	http.StatusBadRequest:          "invalid url",
	http.StatusForbidden:           "access denied",
	http.StatusNotFound:            "listing not found",
	http.StatusTooManyRequests:     "rate limited",
	http.StatusBadGateway:          "upstream failure",
	http.StatusGatewayTimeout:      "upstream timeout",
	http.StatusInternalServerError: "internal error",
}

func (h *handlers) extract(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, model.ErrorResponse{Error: "method not allowed"})
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "missing url"})
		return
	}
	if _, err := target.Validate(rawURL); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid url",
			Message: "Ungültige URL: only kleinanzeigen.de listings are supported",
		})
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	log := logx.FromContext(ctx).With("url", rawURL)

	res, err := h.ex.Extract(ctx, rawURL)
	if err != nil {
		code := adextract.StatusFor(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		log.Warn("extraction failed", "status", code, "error", err)
		writeJSON(w, code, model.ErrorResponse{Error: errorText(code), Message: err.Error()})
		return
	}

	extractedAt := res.Timestamp
	if extractedAt.IsZero() {
		extractedAt = h.now().UTC()
	}
	images := res.Images
	if images == nil {
		images = []string{}
	}

	writeJSON(w, http.StatusOK, model.ExtractResponse{
		Title:       res.Title,
		Description: res.Description,
		Price:       res.Price,
		Location:    res.Location,
		Images:      images,
		ExtractedAt: extractedAt,
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func errorText(code int) string {
	if s, ok := errorCodes[code]; ok {
		return s
	}
	return http.StatusText(code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
