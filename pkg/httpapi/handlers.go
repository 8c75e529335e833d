package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

type refView struct {
	Name   string `json:"name"`
	OID    string `json:"oid"`
	Symref string `json:"symref,omitempty"`
}

type reflogEntryView struct {
	Old      string `json:"old"`
	New      string `json:"new"`
	Identity string `json:"identity"`
	Time     string `json:"time"`
	Message  string `json:"message"`
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	var entries []refView
	err := refs.ForEachRef(r.Context(), h.backend, prefix, 0, refs.IncludeBroken, func(e refs.RefEntry) error {
		entries = append(entries, refView{Name: e.Refname, OID: e.OID.String()})
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) getOrLog(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if strings.HasSuffix(path, "/log") {
		h.log(w, r, strings.TrimSuffix(path, "/log"))
		return
	}
	h.get(w, r, path)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request, name string) {
	raw, err := h.backend.ReadRawRef(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	view := refView{Name: name, OID: raw.OID.String(), Symref: raw.Symref}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) log(w http.ResponseWriter, r *http.Request, name string) {
	var entries []reflogEntryView
	err := h.backend.ForEachReflogEntReverse(r.Context(), name, func(e refs.ReflogEntry) error {
		entries = append(entries, reflogEntryView{
			Old:      e.Old.String(),
			New:      e.New.String(),
			Identity: e.Identity,
			Time:     time.Unix(e.Time, 0).UTC().Format(time.RFC3339),
			Message:  e.Message,
		})
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case refserr.IsNotFound(err):
		status = http.StatusNotFound
	case refserr.IsBroken(err), refserr.IsGenericError(err):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
