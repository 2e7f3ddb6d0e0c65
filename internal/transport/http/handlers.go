// @title Notarium Authorization API
// @version 1.0.0
// @description Scope-hierarchical authorization engine for the Notarium platform

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/notarium/notarium/internal/audit"
	"github.com/notarium/notarium/internal/authz"
	"github.com/notarium/notarium/internal/directory"
	"github.com/notarium/notarium/internal/identity"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	authzService     *authz.Service
	directoryService *directory.Service
	identityService  *identity.Service
	tokenVerifier    *identity.TokenVerifier
	auditLogger      audit.Logger
	validate         *validator.Validate
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authzService *authz.Service,
	directoryService *directory.Service,
	identityService *identity.Service,
	tokenVerifier *identity.TokenVerifier,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		authzService:     authzService,
		directoryService: directoryService,
		identityService:  identityService,
		tokenVerifier:    tokenVerifier,
		auditLogger:      auditLogger,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			// Authorization decisions
			r.Post("/authz/check", h.Check)
			r.Post("/authz/explain", h.Explain)
			r.Get("/authz/bindings", h.ListMyBindings)
			r.Post("/authz/overrides", h.SetOverride)

			// Directory
			r.Post("/orgs", h.CreateOrganization)
			r.Get("/orgs/{orgID}/workspaces", h.ListWorkspaces)
			r.Post("/orgs/{orgID}/workspaces", h.CreateWorkspace)

			r.Route("/workspaces/{workspaceID}", func(r chi.Router) {
				r.Delete("/", h.DeleteWorkspace)
				r.Post("/projects", h.CreateProject)
				r.Get("/documents", h.ListDocuments)
				r.Post("/documents", h.CreateDocument)
				r.Get("/members", h.ListMembers)
				r.Post("/members", h.AddMember)
				r.Delete("/members/{userID}", h.RemoveMember)
			})

			r.Route("/documents/{documentID}", func(r chi.Router) {
				r.Get("/", h.GetDocument)
				r.Put("/", h.UpdateDocument)
				r.Delete("/", h.DeleteDocument)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "notarium",
	})
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the request may
// proceed.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

// Helper functions for responses

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
