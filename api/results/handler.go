// Package results exposes the results store over HTTP so finished and
// in-flight runs can be inspected remotely.
package results

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/voltmesh/prodsim/core/store"
)

// NewHandler returns an HTTP handler exposing realized results via
// GET /api/results/{stage}/realized and variable names via
// GET /api/results/{stage}/variables. Requests must include an
// Authorization header with "Bearer <token>" when token is non-empty.
func NewHandler(st store.Store, token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/results/{stage}/variables", authorized(token, func(w http.ResponseWriter, r *http.Request) {
		names, err := st.ListVariableNames(r.Context(), r.PathValue("stage"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, names)
	}))
	mux.HandleFunc("GET /api/results/{stage}/realized", authorized(token, func(w http.ResponseWriter, r *http.Request) {
		var names []string
		if v := r.URL.Query().Get("variables"); v != "" {
			names = strings.Split(v, ",")
		}
		series, err := st.ReadRealizedVariables(r.Context(), r.PathValue("stage"), names)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, series)
	}))
	return mux
}

func authorized(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
