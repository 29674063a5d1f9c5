package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"image-compressor-go/internal/controller"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/statistics"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//go:embed static/index.html
var static embed.FS

// Server exposes one compressor window over HTTP. Every controller call
// goes through ctrlMutex so the controller keeps a single owner at a time.
// Status pushes happen while ctrlMutex is held.
type Server struct {
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.Mutex

	// bounds every push; guarded by wsMutex
	wsWriteWait time.Duration

	ctrlMutex     sync.Mutex
	ctrl          *controller.Controller
	stats         *statistics.Statistics
	frameInterval time.Duration
}

// DefaultWSWriteWait is how long one push may block on a slow client.
const DefaultWSWriteWait = 5 * time.Second

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type PathRequest struct {
	Path string `json:"path"`
}

type QualityRequest struct {
	Quality int `json:"quality"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewServer(ctrl *controller.Controller, stats *statistics.Statistics, log *logrus.Logger, frameInterval time.Duration) *Server {
	if frameInterval <= 0 {
		frameInterval = 50 * time.Millisecond
	}
	s := &Server{
		log:           log,
		router:        mux.NewRouter(),
		wsClients:     make(map[*websocket.Conn]bool),
		wsWriteWait:   DefaultWSWriteWait,
		ctrl:          ctrl,
		stats:         stats,
		frameInterval: frameInterval,
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/input", s.handleInput).Methods("POST")
	api.HandleFunc("/output", s.handleOutput).Methods("POST")
	api.HandleFunc("/quality", s.handleQuality).Methods("POST")
	api.HandleFunc("/compress", s.handleCompress).Methods("POST")
	api.HandleFunc("/statistics", s.handleGetStatistics).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.wsMutex.Lock()
	for conn := range s.wsClients {
		conn.Close()
		delete(s.wsClients, conn)
	}
	s.wsMutex.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// RunFrameLoop polls the worker every frame until ctx is done, pushing the
// new status to WebSocket clients whenever an outcome arrives.
func (s *Server) RunFrameLoop(ctx context.Context) {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

func (s *Server) pollOnce() {
	s.ctrlMutex.Lock()
	defer s.ctrlMutex.Unlock()
	if s.ctrl.NeedsRepaint() && s.ctrl.Poll() {
		s.broadcastWSMessage("status", s.ctrl.View())
	}
}

func (s *Server) view() controller.View {
	s.ctrlMutex.Lock()
	defer s.ctrlMutex.Unlock()
	return s.ctrl.View()
}

// mutate runs fn against the controller and pushes the resulting view.
// The push happens before the lock is released so clients never see an
// older view after a newer one.
func (s *Server) mutate(fn func(c *controller.Controller) error) (controller.View, error) {
	s.ctrlMutex.Lock()
	defer s.ctrlMutex.Unlock()

	err := fn(s.ctrl)
	v := s.ctrl.View()
	s.broadcastWSMessage("status", v)
	return v, err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		s.writeError(w, "index page missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.view(),
	})
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		s.writeError(w, "Path is required", http.StatusBadRequest)
		return
	}
	if !controller.MatchesAny(controller.InputFilters, req.Path) {
		s.writeError(w, "Input must be one of "+controller.InputFilters[0].String(), http.StatusBadRequest)
		return
	}

	v, _ := s.mutate(func(c *controller.Controller) error {
		c.SetInputPath(req.Path)
		return nil
	})
	logger.WithFileOperation(s.log, req.Path, "select_input").Debug("input selected over HTTP")
	s.writeJSON(w, APIResponse{Success: true, Message: v.Status, Data: v})
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		s.writeError(w, "Path is required", http.StatusBadRequest)
		return
	}

	v, _ := s.mutate(func(c *controller.Controller) error {
		c.SetOutputPath(req.Path)
		return nil
	})
	logger.WithFileOperation(s.log, req.Path, "select_output").Debug("output selected over HTTP")
	s.writeJSON(w, APIResponse{Success: true, Message: v.Status, Data: v})
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	var req QualityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	v, _ := s.mutate(func(c *controller.Controller) error {
		c.SetQuality(req.Quality)
		return nil
	})
	s.writeJSON(w, APIResponse{Success: true, Data: v})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	v, err := s.mutate(func(c *controller.Controller) error {
		return c.Submit()
	})

	switch {
	case errors.Is(err, controller.ErrNotReady):
		s.writeError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		logger.WithOperation(s.log, "compress").WithError(err).Warn("compression was not queued")
		s.writeError(w, v.Status, http.StatusServiceUnavailable)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Compression started",
		Data:    v,
	})
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeJSON(w, APIResponse{Success: true})
		return
	}
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.stats.Snapshot(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// lock order is always ctrlMutex then wsMutex
	s.ctrlMutex.Lock()
	s.wsMutex.Lock()
	conn.SetWriteDeadline(time.Now().Add(s.wsWriteWait))
	err = conn.WriteJSON(WSMessage{Type: "status", Data: s.ctrl.View()})
	if err == nil {
		s.wsClients[conn] = true
	}
	s.wsMutex.Unlock()
	s.ctrlMutex.Unlock()
	if err != nil {
		s.log.Debugf("WebSocket client left before the first frame: %v", err)
		return
	}

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	message := WSMessage{
		Type: messageType,
		Data: data,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	// writes to a connection must not overlap
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for conn := range s.wsClients {
		conn.SetWriteDeadline(time.Now().Add(s.wsWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			delete(s.wsClients, conn)
			conn.Close()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
