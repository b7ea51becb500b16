package handler

import (
	"net/http"

	"github.com/freeeve/techsim/internal/auth"
	"github.com/freeeve/techsim/internal/middleware"
	"github.com/freeeve/techsim/internal/service"
)

// maxBodyBytes caps uploaded run documents.
const maxBodyBytes = 4 << 20

// NewRouter wires every route. Reads are public; mutations need an operator
// access token.
func NewRouter(svc *service.SimulationService, hub *Hub, jwtMgr *auth.JWTManager) http.Handler {
	authHandler := NewAuthHandler(jwtMgr)
	runHandler := NewRunHandler(svc)
	wsHandler := NewWSHandler(hub, jwtMgr)
	authMw := auth.Middleware(jwtMgr)
	protect := func(h http.HandlerFunc) http.Handler { return authMw(h) }

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("POST /auth/token", authHandler.IssueToken)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)

	api := http.NewServeMux()
	api.HandleFunc("GET /runs", runHandler.ListRuns)
	api.HandleFunc("GET /runs/{id}", runHandler.GetRun)
	api.HandleFunc("GET /runs/{id}/cycles", runHandler.ListCycles)
	api.HandleFunc("GET /runs/{id}/status", runHandler.Status)
	api.HandleFunc("GET /runs/{id}/tributes/{name}", runHandler.Tribute)
	api.Handle("POST /runs", protect(runHandler.CreateRun))
	api.Handle("DELETE /runs/{id}", protect(runHandler.DeleteRun))
	api.Handle("POST /runs/{id}/ready", protect(runHandler.ReadyRun))
	api.Handle("POST /runs/{id}/cycles", protect(runHandler.AdvanceRun))

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", api))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	return middleware.Chain(mux,
		middleware.Recover,
		middleware.MaxBody(maxBodyBytes),
		middleware.Logger,
		middleware.CORS("*"),
		middleware.JSON,
	)
}
