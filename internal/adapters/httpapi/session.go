package httpapi

import (
	"communityconnect/internal/core"
	"communityconnect/pkg/domain"
	"net/http"
)

func (h *Handler) ServeSession(w http.ResponseWriter, _ *http.Request) {
	u, ok := h.Service.CurrentUser()
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrNoSession.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": publicUser(u)})
}

type loginRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Service.Login(r.Context(), req.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": publicUser(u)})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) ServeAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": publicUser(u)})
}

func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.Service.Logout(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, outcome, domain.Result{})
}

func (h *Handler) ServeTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"mode": h.Service.ThemeMode()})
}

type themeRequest struct {
	Mode domain.ThemeMode `json:"mode"`
}

func (h *Handler) ServeSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Service.SetThemeMode(r.Context(), req.Mode); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": h.Service.ThemeMode()})
}

func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	res := h.Service.Search(r.URL.Query().Get("q"))
	res.Users = publicUsers(res.Users)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.DashboardEvents(core.DashboardTab(r.URL.Query().Get("tab")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
