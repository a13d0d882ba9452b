package handler

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"strings"
	"time"

	authpb "github.com/DeadlyParkour777/code-room/pkg/auth"
	"github.com/DeadlyParkour777/code-room/pkg/utils"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/cache"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/service"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

//go:embed openapi.yaml
var openApiSpec embed.FS

type ctxKey string

const identityKey = ctxKey("identity")

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	authClient authpb.AuthServiceClient
	jwtCache   cache.JWTCache
	service    service.Service
	hub        *ws.Hub
	checks     map[string]HealthCheck
	validator  *validator.Validate
	logger     *zap.Logger
}

func NewHandler(
	authClient authpb.AuthServiceClient,
	jwtCache cache.JWTCache,
	svc service.Service,
	hub *ws.Hub,
	checks map[string]HealthCheck,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		authClient: authClient,
		jwtCache:   jwtCache,
		service:    svc,
		hub:        hub,
		checks:     checks,
		validator:  validator.New(),
		logger:     logger,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openApiSpec.ReadFile("openapi.yaml")
		if err != nil {
			http.Error(w, "Spec not found", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/x-yaml")
		w.Write(data)
	})

	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.yaml"),
	))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, "Gateway is running")
	})
	r.Get("/health", h.handleHealth)
	r.Get("/languages", h.handleListLanguages)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.handleListRooms)
			r.Post("/", h.handleCreateRoom)

			r.Route("/{roomID}", func(r chi.Router) {
				r.Get("/", h.handleGetRoom)
				r.Patch("/", h.handleUpdateRoom)
				r.Delete("/", h.handleDeleteRoom)
				r.Post("/join", h.handleJoinRoom)
				r.Post("/leave", h.handleLeaveRoom)

				r.Get("/files", h.handleListFiles)
				r.Post("/files", h.handleCreateFile)
				r.Get("/files/{fileID}", h.handleGetFile)
				r.Patch("/files/{fileID}", h.handleRenameFile)
				r.Delete("/files/{fileID}", h.handleDeleteFile)
				r.Put("/files/{fileID}/content", h.handleSaveFile)

				r.Get("/messages", h.handleListMessages)
				r.Post("/messages", h.handlePostMessage)
				r.Post("/assistant", h.handleAsk)

				r.Get("/runs", h.handleListRuns)
				r.Post("/runs", h.handleCreateRun)
				r.Get("/runs/{runID}", h.handleGetRun)

				r.Get("/events", h.handleEvents)
			})
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			h.logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// bearerToken reads the token from the Authorization header, or from the
// token query parameter for clients that cannot set headers (websockets).
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return "", false
		}
		return token, true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			utils.WriteError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		id, err := h.identify(r.Context(), token)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identify resolves a token through the cache, falling back to the auth
// service on a miss.
func (h *Handler) identify(ctx context.Context, token string) (*types.Identity, error) {
	id, err := h.jwtCache.GetIdentity(ctx, token)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		h.logger.Warn("token cache read failed", zap.Error(err))
	}

	resp, err := h.authClient.ValidateToken(ctx, &authpb.ValidateRequest{Token: token})
	if err != nil {
		return nil, err
	}
	if !resp.GetValid() {
		return nil, errInvalidToken
	}

	id = &types.Identity{
		UserID:   resp.GetUserId(),
		Username: resp.GetUsername(),
		Role:     resp.GetRole(),
	}
	if err := h.jwtCache.SetIdentity(ctx, token, id); err != nil {
		h.logger.Warn("token cache write failed", zap.Error(err))
	}
	return id, nil
}

func identityFrom(r *http.Request) *types.Identity {
	id, _ := r.Context().Value(identityKey).(*types.Identity)
	return id
}

// decode parses and validates a JSON body, writing the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := utils.ParseJSON(r, v); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, utils.ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		utils.WriteError(w, status, err.Error())
		return false
	}
	if err := h.validator.Struct(v); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	utils.WriteJSON(w, status, map[string]any{"status": overall, "checks": results})
}

func (h *Handler) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.service.Languages())
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	roomID := chi.URLParam(r, "roomID")

	if _, err := h.service.AuthorizeRoom(r.Context(), id, roomID); err != nil {
		h.writeError(w, r, err)
		return
	}

	ws.ServeWs(h.hub, w, r, roomID, id.UserID)
}
