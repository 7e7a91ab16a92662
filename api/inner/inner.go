// Would have been internal if only it wasnt reserved keyword
package inner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/blocknative/walletprovider/journal"
)

var ErrParamNotFound = errors.New("not found")

type MethodsConfig interface {
	Status() map[string]bool
	SetBool(method string, enabled bool) bool
}

type Journal interface {
	Get(ctx context.Context, hash string) (journal.Entry, error)
}

type API struct {
	cfg     MethodsConfig
	journal Journal
}

// NewAPI serves operator endpoints. j may be nil when no journal is kept.
func NewAPI(cfg MethodsConfig, j Journal) *API {
	return &API{cfg: cfg, journal: j}
}

func (a *API) AttachToHandler(m *http.ServeMux) {
	m.HandleFunc("/services/status", a.getStatus)
	m.HandleFunc("/services/methods/set_availability", a.setAvailability)

	m.HandleFunc("/journal", a.getJournalEntry)
}

type Status struct {
	Methods map[string]bool `json:"methods"`
}

func (a *API) getStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Status{Methods: a.cfg.Status()})
}

func (a *API) setAvailability(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	query := r.URL.Query()
	for k, v := range query {
		if len(v) != 1 {
			writeError(w, http.StatusBadRequest, "wrong parameter count")
			return
		}
		var val bool
		switch strings.ToLower(v[0]) {
		case "true", "1":
			val = true
		case "false", "0":
		default:
			writeError(w, http.StatusBadRequest, "wrong parameter")
			return
		}

		if !a.cfg.SetBool(k, val) {
			writeError(w, http.StatusBadRequest, "method not found")
			return
		}
	}

	json.NewEncoder(w).Encode(Status{Methods: a.cfg.Status()})
}

func (a *API) getJournalEntry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if a.journal == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}

	hash, err := txHash(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "wrong hash")
		return
	}

	e, err := a.journal.Get(r.Context(), hash)
	if errors.Is(err, journal.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error processing request")
		return
	}

	json.NewEncoder(w).Encode(e)
}

func txHash(r *http.Request) (string, error) {
	h := r.URL.Query().Get("hash")
	if h == "" {
		return "", ErrParamNotFound
	}
	if len(h) != 66 || !strings.HasPrefix(h, "0x") {
		return "", errors.New("invalid hash")
	}
	return strings.ToLower(h), nil
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
