package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	applog "scullery/internal/log"
	"scullery/internal/sales"
)

var (
	database *gorm.DB
	engine   *sales.Engine
	previews *sales.Registry
)

// Configure wires the handler package's shared dependencies. The database
// handle is already tenant-scoped; no tenant resolution happens here.
func Configure(db *gorm.DB, saleEngine *sales.Engine, registry *sales.Registry) {
	database = db
	engine = saleEngine
	previews = registry
}

type jsonError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(nil, "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, jsonError{Error: message})
}

// resourcePath strips the route prefix and returns the remaining path with
// surrounding slashes removed.
func resourcePath(r *http.Request, prefix string) string {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	return strings.Trim(path, "/")
}

func parseID(value string) (uint, bool) {
	idValue, err := strconv.ParseUint(value, 10, 64)
	if err != nil || idValue == 0 {
		return 0, false
	}
	return uint(idValue), true
}
