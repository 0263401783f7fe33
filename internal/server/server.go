// Package server exposes the advisor, the policy database, the market
// tables, and per-visitor sessions as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/health-advisor/internal/advisor"
	"github.com/sells-group/health-advisor/internal/market"
	"github.com/sells-group/health-advisor/internal/policydb"
	"github.com/sells-group/health-advisor/internal/session"
)

// TermsFetcher returns display text for a company's terms and conditions.
type TermsFetcher interface {
	Fetch(ctx context.Context, company string) string
}

// Deps are the collaborators the handlers need. Advisor, Sessions, and
// Refresher are required; a nil DB is treated as empty.
type Deps struct {
	Advisor      *advisor.Advisor
	DB           *policydb.Database
	DBWarning    string
	Sessions     *session.Store
	Refresher    *market.Refresher
	Terms        TermsFetcher
	DisplayLimit int
	CORSOrigins  []string
}

// Server routes HTTP requests to the advisor's operations.
type Server struct {
	deps   Deps
	router chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	if deps.DB == nil {
		deps.DB = policydb.Empty()
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}
	s := &Server{deps: deps}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/reset", s.handleResetSession)
			r.Put("/profile", s.handleSubmitProfile)
			r.Get("/recommendations", s.handleRecommendations)
			r.Get("/messages", s.handleMessages)
			r.Post("/chat", s.handleChat)
		})
	})

	r.Get("/policies", s.handlePolicies)
	r.Get("/policies/options", s.handlePolicyOptions)
	r.Post("/compare", s.handleCompare)
	r.Get("/terms", s.handleTerms)

	r.Route("/market", func(r chi.Router) {
		r.Get("/irdai", s.handleIRDAI)
		r.Post("/irdai/refresh", s.handleRefreshIRDAI)
		r.Get("/claims", s.handleClaims)
		r.Post("/claims/refresh", s.handleRefreshClaims)
		r.Get("/premiums", s.handlePremiums)
		r.Post("/premiums/refresh", s.handleRefreshPremiums)
		r.Get("/export.xlsx", s.handleExportMarket)
	})
	return r
}

type healthRes struct {
	Status         string `json:"status"`
	ModelAvailable bool   `json:"model_available"`
	Policies       int    `json:"policies"`
	Sessions       int    `json:"sessions"`
	DBWarning      string `json:"db_warning,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, healthRes{
		Status:         "ok",
		ModelAvailable: s.deps.Advisor.Available(),
		Policies:       s.deps.DB.PolicyCount(),
		Sessions:       s.deps.Sessions.Len(),
		DBWarning:      s.deps.DBWarning,
	}, nil)
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, v any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he httpErr
		if errors.As(err, &he) {
			code = he.code
			msg = he.msg
		} else {
			zap.L().Error("http handler failed", zap.Error(err))
		}
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type httpErr struct {
	code int
	msg  string
}

func (e httpErr) Error() string { return e.msg }

func badRequest(msg string) error { return httpErr{code: http.StatusBadRequest, msg: msg} }

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: " + eris.Cause(err).Error())
	}
	return nil
}
