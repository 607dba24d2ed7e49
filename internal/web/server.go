// Package web serves the simulator over a REST API and streams positions to
// browser clients over a websocket.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/labstack/gommon/log"

	"github.com/Bucknalla/go-vessel-simulator/vessel"
)

// Websocket message types
const (
	MessageStatus   = "status"
	MessagePosition = "position"
	MessageComplete = "complete"
)

const (
	broadcastBuffer = 256
	writeWait       = 5 * time.Second
)

var errInvalidBody = errors.New("invalid request body")

// Message is the envelope of every websocket frame
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return c.conn.WriteJSON(msg)
}

// Server owns one simulator and fans its updates out to websocket clients
type Server struct {
	simulator *vessel.Simulator
	logger    *log.Logger
	metrics   http.Handler
	staticDir string

	mu         sync.Mutex
	lastConfig vessel.Config

	upgrader  websocket.Upgrader
	clientsMu sync.Mutex
	clients   map[*client]struct{}
	broadcast chan Message
}

// NewServer creates the server and its idle simulator. metricsHandler is
// mounted on /metrics when non-nil.
func NewServer(cfg Config, logger *log.Logger, metricsHandler http.Handler, opts ...vessel.Option) (*Server, error) {
	config := vessel.DefaultConfig()
	simOpts := append([]vessel.Option{vessel.WithLogger(logger)}, opts...)
	simulator, err := vessel.NewSimulator(config, simOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	ws := &Server{
		simulator:  simulator,
		logger:     logger,
		metrics:    metricsHandler,
		staticDir:  cfg.StaticDir,
		lastConfig: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*client]struct{}),
		broadcast: make(chan Message, broadcastBuffer),
	}

	simulator.AddCallback(ws.onUpdate)
	simulator.OnFinish(ws.onFinish)
	return ws, nil
}

// Simulator returns the simulator driven by the server
func (ws *Server) Simulator() *vessel.Simulator {
	return ws.simulator
}

// Router builds the HTTP routes
func (ws *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(ws.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/start", ws.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/stop", ws.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/status", ws.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/config", ws.handleUpdateConfig).Methods(http.MethodPost)
	api.HandleFunc("/plan", ws.handlePlan).Methods(http.MethodPost)
	api.HandleFunc("/ws", ws.handleWebSocket)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if ws.metrics != nil {
		r.Handle("/metrics", ws.metrics).Methods(http.MethodGet)
	}

	r.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if ws.staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(ws.staticDir)))
	}
	return r
}

// Broadcast delivers queued messages to every connected client until ctx is done
func (ws *Server) Broadcast(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ws.broadcast:
			ws.sendAll(msg)
		}
	}
}

// Shutdown stops any running simulation and disconnects all clients
func (ws *Server) Shutdown() {
	if err := ws.simulator.Stop(); err != nil && !errors.Is(err, vessel.ErrSimulatorNotRunning) {
		ws.logger.Warnf("failed to stop simulator: %v", err)
	}

	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	for c := range ws.clients {
		c.conn.Close()
		delete(ws.clients, c)
	}
}

func (ws *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		ws.logger.Debugf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (ws *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	count := ws.addClient(c)
	ws.logger.Infof("client connected, total clients: %d", count)

	if err := c.write(Message{Type: MessageStatus, Data: ws.simulator.GetStatus()}); err != nil {
		ws.logger.Warnf("error sending status: %v", err)
	}

	// Client frames are only read to detect disconnects
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			ws.logger.Debugf("websocket read error: %v", err)
			break
		}
		ws.logger.Debugf("received message: %v", msg)
	}

	if ws.removeClient(c) {
		ws.logger.Infof("client disconnected, total clients: %d", ws.clientCount())
	}
}

func (ws *Server) addClient(c *client) int {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	ws.clients[c] = struct{}{}
	return len(ws.clients)
}

// removeClient closes the connection and reports whether it was registered
func (ws *Server) removeClient(c *client) bool {
	ws.clientsMu.Lock()
	_, ok := ws.clients[c]
	delete(ws.clients, c)
	ws.clientsMu.Unlock()

	c.conn.Close()
	return ok
}

func (ws *Server) clientCount() int {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	return len(ws.clients)
}

func (ws *Server) sendAll(msg Message) {
	ws.clientsMu.Lock()
	clients := make([]*client, 0, len(ws.clients))
	for c := range ws.clients {
		clients = append(clients, c)
	}
	ws.clientsMu.Unlock()

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			ws.logger.Warnf("websocket write error: %v", err)
			ws.removeClient(c)
		}
	}
}

func (ws *Server) publish(msg Message) {
	select {
	case ws.broadcast <- msg:
	default:
		ws.logger.Debugf("broadcast queue full, dropping %s message", msg.Type)
	}
}

func (ws *Server) onUpdate(u vessel.Update) {
	ws.publish(Message{Type: MessagePosition, Data: vessel.NMEAData{
		Sentences: vessel.GenerateSentences(u),
		Update:    u,
		Timestamp: u.Timestamp,
	}})
}

func (ws *Server) onFinish(o vessel.Outcome) {
	ws.publish(Message{Type: MessageComplete, Data: o})
}

func (ws *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	config, err := ws.decodeConfig(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ws.setLastConfig(config)

	ws.logger.Infof("starting simulator: %s -> %s at %.1f km/h", config.Start, config.End, config.SpeedKmH)
	if err := ws.simulator.Restart(config); err != nil {
		ws.logger.Warnf("failed to start simulator: %v", err)
		writeError(w, err)
		return
	}

	status := ws.simulator.GetStatus()
	ws.publish(Message{Type: MessageStatus, Data: status})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "started",
		"plan":   status.Plan,
	})
}

func (ws *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := ws.simulator.Stop(); err != nil {
		writeError(w, err)
		return
	}

	ws.publish(Message{Type: MessageStatus, Data: ws.simulator.GetStatus()})
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (ws *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.simulator.GetStatus())
}

func (ws *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	config, err := ws.decodeConfig(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := ws.simulator.UpdateConfig(config); err != nil {
		ws.logger.Warnf("failed to update config: %v", err)
		writeError(w, err)
		return
	}
	ws.setLastConfig(config)

	running := ws.simulator.IsRunning()
	if running {
		ws.logger.Infof("configuration updated, run restarted")
	} else {
		ws.logger.Infof("configuration stored for the next start")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "updated",
		"running": running,
	})
}

func (ws *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	config, err := ws.decodeConfig(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vessel.NewPlan(config.Parameters()))
}

// decodeConfig overlays the request body on the last used configuration. An
// empty body reuses it unchanged. Local outputs are never enabled remotely.
func (ws *Server) decodeConfig(r *http.Request) (vessel.Config, error) {
	ws.mu.Lock()
	config := ws.lastConfig
	ws.mu.Unlock()

	if err := json.NewDecoder(r.Body).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, vessel.ErrInvalidCoordinate) {
			return vessel.Config{}, err
		}
		return vessel.Config{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	config.SerialPort = ""
	config.GPXEnabled = false
	config.GPXFile = ""

	if err := config.Validate(); err != nil {
		return vessel.Config{}, err
	}
	if !vessel.NewPlan(config.Parameters()).Finite() {
		return vessel.Config{}, vessel.ErrDegeneratePlan
	}
	return config, nil
}

func (ws *Server) setLastConfig(config vessel.Config) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.lastConfig = config
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, vessel.ErrSimulatorNotRunning),
		errors.Is(err, vessel.ErrSimulatorAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, errInvalidBody),
		errors.Is(err, vessel.ErrInvalidCoordinate),
		errors.Is(err, vessel.ErrInvalidSpeed),
		errors.Is(err, vessel.ErrInvalidRefreshRate),
		errors.Is(err, vessel.ErrInvalidBaudRate),
		errors.Is(err, vessel.ErrDegeneratePlan):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
