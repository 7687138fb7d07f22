package web

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/cache"
	"github.com/mogaika/scene_composer/config"
	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/webutils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) HandlerStatus(w http.ResponseWriter, r *http.Request) {
	last := s.Hub.Last()
	if last == nil {
		webutils.WriteJson(w, map[string]interface{}{})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	webutils.WriteResult(w, last)
}

func (s *Server) HandlerCache(w http.ResponseWriter, r *http.Request) {
	var stats []cache.TableStats
	if s.Stats != nil {
		stats = s.Stats()
	}
	webutils.WriteJson(w, stats)
}

// HandlerConfig shows the active config, reloads included.
func (s *Server) HandlerConfig(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, config.Get())
}

func (s *Server) HandlerStatusWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		logger.Named("web").Warn("Failed to upgrade status connection", zap.Error(err))
		return
	}
	s.Hub.Serve(conn)
}

func (s *Server) HandlerDumpScene(w http.ResponseWriter, r *http.Request) {
	var path string
	if s.Output != nil {
		path = s.Output()
	}
	if path == "" {
		webutils.WriteNotFound(w, errors.Errorf("Scene is not exported yet"))
		return
	}
	f, err := os.Open(path)
	if err != nil {
		webutils.WriteNotFound(w, errors.Wrapf(err, "Failed to open %q", filepath.Base(path)))
		return
	}
	defer f.Close()
	webutils.WriteFile(w, f, filepath.Base(path))
}
