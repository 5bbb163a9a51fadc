package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/pulse/internal/auth"
	"github.com/rzbill/pulse/internal/dedup"
	"github.com/rzbill/pulse/internal/ratelimit"
	"github.com/rzbill/pulse/internal/runtime"
	eventsvc "github.com/rzbill/pulse/internal/services/events"
	logpkg "github.com/rzbill/pulse/pkg/log"
)

type Server struct {
	rt      *runtime.Runtime
	srv     *http.Server
	lis     net.Listener
	events  *eventsvc.Service
	keys    *auth.Store
	limiter *ratelimit.Limiter
	logger  logpkg.Logger
}

func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	cfg := rt.Config()
	s := &Server{
		rt:      rt,
		events:  eventsvc.New(rt.OpenEventStore(), dedup.New(cfg.DedupWindow()), cfg, logger),
		keys:    rt.OpenKeyStore(),
		limiter: ratelimit.New(),
		logger:  logger.With(logpkg.Component("http")),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /events", s.handleIngest)
	mux.HandleFunc("GET /events/inbox", s.handleInbox)
	mux.HandleFunc("GET /events/{event_id}", s.handleGet)
	mux.HandleFunc("DELETE /events/{event_id}", s.handleAcknowledge)
	s.srv = &http.Server{Handler: cors(mux)}
	return s
}

// Handler returns the root handler, used by tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http server listening", logpkg.Str("addr", l.Addr().String()))
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

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
