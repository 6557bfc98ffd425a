package router

import (
	"net/http"

	"codegate/internal/handler"
	"codegate/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates the HTTP router with all routes and middleware configured.
// Every path except the health check belongs to the code handler, since any
// root-level path is a potential download code.
func New(codeHandler *handler.CodeHandler, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint. Uses a reserved-looking prefix so it cannot
	// collide with a code redemption path in practice.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Everything else is an intent carried in the path.
	mux.HandleFunc("/", codeHandler.Dispatch)

	// Apply middleware in order: Recovery -> Logging -> RequestID
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
