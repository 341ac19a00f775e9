package httpapi

import (
	"communityconnect/internal/core"
	"communityconnect/pkg/domain"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ServeListOrganizations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orgs := h.Service.ListOrganizations(core.OrganizationFilter{
		Query: q.Get("q"),
		Tags:  queryTags(r),
		Kind:  core.OrganizationKind(q.Get("kind")),
	})
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

func (h *Handler) ServeRecommendedOrganizations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"organizations": h.Service.RecommendedOrganizations(queryLimit(r))})
}

func (h *Handler) ServeOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orgID")
	org, ok := h.Service.GetOrganizationByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrNotFound{Entity: domain.EntityOrganization, ID: id}.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organization": org})
}

func (h *Handler) ServeOrganizationEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.Service.GetOrganizationEvents(chi.URLParam(r, "orgID"))})
}

// ServeUpdateOrganization merges the request body onto the stored record.
// Counters, the roster and the event list only change through membership,
// follow and event endpoints.
func (h *Handler) ServeUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orgID")
	org, ok := h.Service.GetOrganizationByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrNotFound{Entity: domain.EntityOrganization, ID: id}.Error())
		return
	}
	stored := org
	if err := mergeJSON(&org, r.Body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	keepManagedOrganizationFields(&org, stored)
	updated, res, err := h.Service.UpdateOrganization(r.Context(), org)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organization": updated, "violations": res.Violations})
}

func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.JoinOrganization, "orgID")
}

func (h *Handler) ServeLeave(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.LeaveOrganization, "orgID")
}

func (h *Handler) ServeFollowOrganization(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.FollowOrganization, "orgID")
}

func (h *Handler) ServeUnfollowOrganization(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.UnfollowOrganization, "orgID")
}

func (h *Handler) ServeNotInterested(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.MarkNotInterested, "orgID")
}

type inviteRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) ServeInviteMember(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	outcome, res, err := h.Service.InviteMemberToOrganization(r.Context(), chi.URLParam(r, "orgID"), req.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, outcome, res)
}

func (h *Handler) ServeRemoveMember(w http.ResponseWriter, r *http.Request) {
	outcome, res, err := h.Service.RemoveMemberFromOrganization(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, outcome, res)
}

func (h *Handler) ServeUploadOrganizationImage(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	kind := core.ImageKind(chi.URLParam(r, "kind"))
	org, res, err := h.Service.UploadOrganizationImage(r.Context(), chi.URLParam(r, "orgID"), kind, body, r.Header.Get("Content-Type"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organization": org, "violations": res.Violations})
}

func keepManagedOrganizationFields(o *domain.Organization, stored domain.Organization) {
	o.ID = stored.ID
	o.CreatedAt = stored.CreatedAt
	o.FollowerCount = stored.FollowerCount
	o.MemberCount = stored.MemberCount
	o.Members = stored.Members
	o.Events = stored.Events
}
