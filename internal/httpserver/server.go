package httpserver

import (
	"context"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// Server wraps the HTTP server setup.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New builds a Server with the storefront routes. Write timeouts leave room for a full checkout.
func New(addr string, logger *log.Logger, db *pgxpool.Pool, deps Deps) (*Server, error) {
	router, err := buildRouter(logger, db, deps)
	if err != nil {
		return nil, err
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      checkoutTimeout(deps) + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: httpSrv,
		logger:     logger,
	}, nil
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight checkouts to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Printf("draining http server on %s", s.httpServer.Addr)
	return s.httpServer.Shutdown(ctx)
}

func checkoutTimeout(deps Deps) time.Duration {
	if deps.CheckoutTimeout > 0 {
		return deps.CheckoutTimeout
	}
	return defaultCheckoutTimeout
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyHandler runs every check with a one second budget. Postgres is always checked.
func readyHandler(db *pgxpool.Pool, extra map[string]ReadyCheck) gin.HandlerFunc {
	checks := map[string]ReadyCheck{
		"postgres": func(ctx context.Context) error {
			if db == nil {
				return errDBNotConfigured
			}
			return db.Ping(ctx)
		},
	}
	for name, check := range extra {
		checks[name] = check
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		if status != http.StatusOK {
			c.JSON(status, gin.H{"status": "unavailable", "checks": results})
			return
		}
		c.JSON(status, gin.H{"status": "ready", "checks": results})
	}
}
