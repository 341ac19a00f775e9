package httpapi

import (
	"communityconnect/internal/core"
	"communityconnect/pkg/domain"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ServeListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.EventFilter{Query: q.Get("q"), Tags: queryTags(r)}
	if v := q.Get("after"); v != "" {
		after, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "after must be an RFC 3339 timestamp")
			return
		}
		filter.After = after
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": h.Service.ListEvents(filter)})
}

func (h *Handler) ServeDiscoverEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.Service.DiscoverEvents(queryLimit(r))})
}

func (h *Handler) ServeMapEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.Service.MapEvents()})
}

func (h *Handler) ServeEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	e, ok := h.Service.GetEventByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrNotFound{Entity: domain.EntityEvent, ID: id}.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": e})
}

func (h *Handler) ServeCreateEvent(w http.ResponseWriter, r *http.Request) {
	var draft domain.Event
	if !decodeJSON(w, r, &draft) {
		return
	}
	e, res, err := h.Service.CreateEvent(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"event": e, "violations": res.Violations})
}

func (h *Handler) ServeAttend(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.AttendEvent, "eventID")
}

func (h *Handler) ServeUnattend(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.UnattendEvent, "eventID")
}
