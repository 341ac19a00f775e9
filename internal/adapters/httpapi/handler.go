// Package httpapi exposes the community service as a JSON API.
package httpapi

import (
	"communityconnect/internal/blob"
	"communityconnect/internal/core"
	"communityconnect/pkg/domain"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxUploadBytes bounds image uploads.
const maxUploadBytes = 10 << 20

// Handler serves the JSON API. Passwords are cleared from every user it
// returns.
type Handler struct {
	Service *core.Service
	Logger  core.Logger
}

// New constructs a handler. A nil logger discards output.
func New(svc *core.Service, logger core.Logger) *Handler {
	if logger == nil {
		logger = discardLogger{}
	}
	return &Handler{Service: svc, Logger: logger}
}

// Routes returns the router for the API and the media endpoint.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.ServeSession)
		r.Post("/session", h.ServeLogin)
		r.Post("/session/authenticate", h.ServeAuthenticate)
		r.Delete("/session", h.ServeLogout)

		r.Get("/theme", h.ServeTheme)
		r.Put("/theme", h.ServeSetTheme)

		r.Get("/search", h.ServeSearch)
		r.Get("/dashboard", h.ServeDashboard)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ServeListUsers)
			r.Post("/", h.ServeRegister)
			r.Put("/me", h.ServeUpdateMe)
			r.Put("/me/avatar", h.ServeUploadAvatar)
			r.Post("/me/activity", h.ServeAddActivity)
			r.Get("/{userID}", h.ServeUser)
			r.Get("/{userID}/events", h.ServeUserEvents)
			r.Post("/{userID}/follow", h.ServeFollowUser)
			r.Delete("/{userID}/follow", h.ServeUnfollowUser)
			r.Post("/{userID}/block", h.ServeBlockUser)
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", h.ServeListOrganizations)
			r.Get("/recommended", h.ServeRecommendedOrganizations)
			r.Get("/{orgID}", h.ServeOrganization)
			r.Put("/{orgID}", h.ServeUpdateOrganization)
			r.Get("/{orgID}/events", h.ServeOrganizationEvents)
			r.Post("/{orgID}/membership", h.ServeJoin)
			r.Delete("/{orgID}/membership", h.ServeLeave)
			r.Post("/{orgID}/follow", h.ServeFollowOrganization)
			r.Delete("/{orgID}/follow", h.ServeUnfollowOrganization)
			r.Post("/{orgID}/not-interested", h.ServeNotInterested)
			r.Post("/{orgID}/members", h.ServeInviteMember)
			r.Delete("/{orgID}/members/{userID}", h.ServeRemoveMember)
			r.Put("/{orgID}/images/{kind}", h.ServeUploadOrganizationImage)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ServeListEvents)
			r.Post("/", h.ServeCreateEvent)
			r.Get("/discover", h.ServeDiscoverEvents)
			r.Get("/map", h.ServeMapEvents)
			r.Get("/{eventID}", h.ServeEvent)
			r.Post("/{eventID}/attendance", h.ServeAttend)
			r.Delete("/{eventID}/attendance", h.ServeUnattend)
		})
	})

	r.Get("/media/*", h.ServeMedia)
	return r
}

type mutationResponse struct {
	Outcome    domain.Outcome     `json:"outcome,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeMutation(w http.ResponseWriter, outcome domain.Outcome, res domain.Result) {
	writeJSON(w, http.StatusOK, mutationResponse{Outcome: outcome, Violations: res.Violations})
}

// writeServiceError maps service errors onto status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var violation domain.RuleViolationError
	switch {
	case errors.Is(err, domain.ErrNoSession), errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotOrganization):
		writeError(w, http.StatusForbidden, err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail), errors.Is(err, domain.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &violation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      err.Error(),
			"violations": violation.Result.Violations,
		})
	case errors.Is(err, blob.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

// mergeJSON overlays the top-level keys of body onto the JSON form of dst.
func mergeJSON(dst any, body io.Reader) error {
	current, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	var base, patch map[string]json.RawMessage
	if err := json.Unmarshal(current, &base); err != nil {
		return err
	}
	if err := json.NewDecoder(body).Decode(&patch); err != nil {
		return err
	}
	for k, v := range patch {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, dst)
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

// queryTags accepts repeated tag parameters and comma-separated lists.
func queryTags(r *http.Request) []string {
	var tags []string
	for _, v := range r.URL.Query()["tag"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

func publicUser(u domain.User) domain.User {
	u.Password = ""
	return u
}

func publicUsers(users []domain.User) []domain.User {
	out := make([]domain.User, len(users))
	for i, u := range users {
		out[i] = publicUser(u)
	}
	return out
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
