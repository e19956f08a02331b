package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rmca/fip/internal/runtime"
	"github.com/rmca/fip/internal/server/http/controllers"
)

// Server hosts the HTTP API.
type Server struct {
	srv *http.Server
	lis net.Listener
}

// New builds the server and registers all controller routes.
func New(rt *runtime.Runtime) *Server {
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt).RegisterAllRoutes(mux)
	return &Server{srv: &http.Server{Handler: cors(mux)}}
}

// Handler exposes the configured handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
