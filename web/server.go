package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/cache"
	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/status"
)

const SHUTDOWN_TIMEOUT = 5 * time.Second

// Server exposes a read-only view of a running compose: progress, cache
// statistics and the exported scene once it is written.
type Server struct {
	Hub   *status.Hub
	Stats func() []cache.TableStats
	// path of the exported scene, empty until it exists
	Output func() string
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/status", s.HandlerStatus).Methods(http.MethodGet)
	r.HandleFunc("/json/cache", s.HandlerCache).Methods(http.MethodGet)
	r.HandleFunc("/json/config", s.HandlerConfig).Methods(http.MethodGet)
	r.HandleFunc("/ws/status", s.HandlerStatusWs)
	r.HandleFunc("/dump/scene", s.HandlerDumpScene).Methods(http.MethodGet)
	return r
}

func (s *Server) Handler() http.Handler {
	log := logger.Named("web")
	h := handlers.RecoveryHandler(handlers.RecoveryLogger(zap.NewStdLog(log)))(s.Router())
	return handlers.LoggingHandler(zap.NewStdLog(log).Writer(), h)
}

// StartServer serves until ctx is cancelled.
func StartServer(ctx context.Context, addr string, s *Server) error {
	log := logger.Named("web")
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
