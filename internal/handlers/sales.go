package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	applog "scullery/internal/log"
	"scullery/internal/sales"
)

type previewRequest struct {
	Lines       []sales.SaleLine `json:"lines"`
	DefaultTime *time.Time       `json:"default_time,omitempty"`
}

type applyRequest struct {
	Token string `json:"token"`
}

// SalesResource exposes the preview/apply/discard lifecycle over JSON. A
// preview is always a distinct inspectable step; nothing auto-applies.
func SalesResource(w http.ResponseWriter, r *http.Request) {
	if engine == nil || previews == nil {
		applog.Debug(r.Context(), "sales request without engine")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch resourcePath(r, "/api/sales") {
	case "preview":
		previewSales(w, r)
	case "apply":
		applySales(w, r)
	case "discard":
		discardSales(w, r)
	default:
		http.NotFound(w, r)
	}
}

func previewSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload previewRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid preview payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if len(payload.Lines) == 0 {
		writeJSONError(w, http.StatusBadRequest, "at least one sale line is required")
		return
	}

	defaultTime := time.Time{}
	if payload.DefaultTime != nil {
		defaultTime = *payload.DefaultTime
	}

	preview, err := engine.Preview(ctx, payload.Lines, defaultTime)
	if err != nil {
		applog.Error(ctx, "failed to preview sales", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to preview sales")
		return
	}

	previews.Put(preview)
	writeJSON(w, http.StatusOK, preview)
}

func applySales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, ok := decodeToken(w, r)
	if !ok {
		return
	}

	preview, err := previews.Take(token)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "preview not found or already decided")
		return
	}

	result, err := engine.Apply(ctx, preview)
	if err != nil {
		if errors.Is(err, sales.ErrStaleInventory) {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		applog.Error(ctx, "failed to apply sales", "error", err, "token", token)
		writeJSONError(w, http.StatusInternalServerError, "unable to apply sales")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func discardSales(w http.ResponseWriter, r *http.Request) {
	token, ok := decodeToken(w, r)
	if !ok {
		return
	}

	if !previews.Discard(token) {
		writeJSONError(w, http.StatusNotFound, "preview not found or already decided")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload applyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid token payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return "", false
	}
	token := strings.TrimSpace(payload.Token)
	if token == "" {
		writeJSONError(w, http.StatusBadRequest, "token is required")
		return "", false
	}
	return token, true
}
