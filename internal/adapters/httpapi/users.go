package httpapi

import (
	"communityconnect/internal/core"
	"communityconnect/pkg/domain"
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ServeListUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": publicUsers(h.Service.ListUsers())})
}

func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	u, ok := h.Service.GetUserByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrNotFound{Entity: domain.EntityUser, ID: id}.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": publicUser(u)})
}

func (h *Handler) ServeUserEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.Service.GetUserEvents(chi.URLParam(r, "userID"))})
}

type registerRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Bio            string `json:"bio"`
	Major          string `json:"major"`
	IsOrganization bool   `json:"is_organization"`
}

func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, res, err := h.Service.Register(r.Context(), core.Registration(req))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": publicUser(u), "violations": res.Violations})
}

// ServeUpdateMe merges the request body onto the session user. Fields left
// out of the body keep their stored values. Relationship lists, the activity
// feed and the account type have their own endpoints and are never taken
// from the body.
func (h *Handler) ServeUpdateMe(w http.ResponseWriter, r *http.Request) {
	current, ok := h.Service.CurrentUser()
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrNoSession.Error())
		return
	}
	stored := current
	current.Password = ""
	if err := mergeJSON(&current, r.Body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	keepManagedUserFields(&current, stored)
	u, res, err := h.Service.UpdateUser(r.Context(), current)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": publicUser(u), "violations": res.Violations})
}

func (h *Handler) ServeUploadAvatar(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	u, res, err := h.Service.UploadAvatar(r.Context(), body, r.Header.Get("Content-Type"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": publicUser(u), "violations": res.Violations})
}

func (h *Handler) ServeAddActivity(w http.ResponseWriter, r *http.Request) {
	var item domain.ActivityItem
	if !decodeJSON(w, r, &item) {
		return
	}
	res, err := h.Service.AddActivity(r.Context(), item)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, domain.OutcomeApplied, res)
}

func (h *Handler) ServeFollowUser(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.FollowUser, "userID")
}

func (h *Handler) ServeUnfollowUser(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.UnfollowUser, "userID")
}

func (h *Handler) ServeBlockUser(w http.ResponseWriter, r *http.Request) {
	h.serveMutation(w, r, h.Service.BlockUser, "userID")
}

type idMutation func(ctx context.Context, id string) (domain.Outcome, domain.Result, error)

// serveMutation runs a single-id mutation named by a URL parameter.
func (h *Handler) serveMutation(w http.ResponseWriter, r *http.Request, fn idMutation, param string) {
	outcome, res, err := fn(r.Context(), chi.URLParam(r, param))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, outcome, res)
}

func keepManagedUserFields(u *domain.User, stored domain.User) {
	u.ID = stored.ID
	u.CreatedAt = stored.CreatedAt
	u.IsOrganization = stored.IsOrganization
	u.OrganizationsJoined = stored.OrganizationsJoined
	u.OrganizationsFollowed = stored.OrganizationsFollowed
	u.EventsAttending = stored.EventsAttending
	u.Following = stored.Following
	u.Followers = stored.Followers
	u.BlockedUsers = stored.BlockedUsers
	u.NotInterestedOrgs = stored.NotInterestedOrgs
	u.ActivityFeed = stored.ActivityFeed
}
