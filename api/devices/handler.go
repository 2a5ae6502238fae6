// Package devices exposes the last-known-reported device state over HTTP.
package devices

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/voltbridge/ocpp-gateway/core/devicestate"
)

// NewStateHandler returns an HTTP handler exposing device state via
// GET /api/devices/state. With an id query parameter it returns one device's
// reported fields; without it, the list of known device identities.
func NewStateHandler(store *devicestate.MemoryStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if id := r.URL.Query().Get("id"); id != "" {
			st, ok := store.Get(id)
			if !ok {
				http.Error(w, "unknown device", http.StatusNotFound)
				return
			}
			if err := json.NewEncoder(w).Encode(st); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		ids := store.List()
		sort.Strings(ids)
		if err := json.NewEncoder(w).Encode(ids); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
