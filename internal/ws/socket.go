package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/Amogh-2404/SocketQuiz/internal/game"
)

const pingInterval = 5 * time.Second

// Server terminates client connections and translates socket events into
// coordinator calls. It also implements game.Broadcaster for the fan-out
// direction.
type Server struct {
	coord *game.Coordinator

	mu      sync.Mutex
	conns   map[string]socketio.Conn
	members map[string]map[string]socketio.Conn // sessionID -> connID -> Conn

	lat *latencyTracker
}

func New() *Server {
	return &Server{
		conns:   make(map[string]socketio.Conn),
		members: make(map[string]map[string]socketio.Conn),
		lat:     newLatencyTracker(),
	}
}

// SetCoordinator wires the coordinator in after construction; the coordinator
// itself needs the server as its Broadcaster.
func (srv *Server) SetCoordinator(c *game.Coordinator) { srv.coord = c }

// Latency exposes the RTT tracker as the coordinator's latency collaborator.
func (srv *Server) Latency() game.LatencyProbe { return srv.lat }

// JoinRoom implements game.Broadcaster.
func (srv *Server) JoinRoom(sessionID, connID string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	conn := srv.conns[connID]
	if conn == nil {
		return
	}
	conn.Join(sessionID)
	if srv.members[sessionID] == nil {
		srv.members[sessionID] = make(map[string]socketio.Conn)
	}
	srv.members[sessionID][connID] = conn
}

// LeaveRoom implements game.Broadcaster.
func (srv *Server) LeaveRoom(sessionID, connID string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if conn := srv.conns[connID]; conn != nil {
		conn.Leave(sessionID)
	}
	if m := srv.members[sessionID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(srv.members, sessionID)
		}
	}
}

// ToSession implements game.Broadcaster. Emits are buffered per connection,
// so one slow socket cannot hold up the rest of the room.
func (srv *Server) ToSession(sessionID, event string, payload any) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for _, conn := range srv.members[sessionID] {
		conn.Emit(event, payload)
	}
}

// ToConn implements game.Broadcaster.
func (srv *Server) ToConn(connID, event string, payload any) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if conn := srv.conns[connID]; conn != nil {
		conn.Emit(event, payload)
	}
}

// Mount attaches the Socket.IO server with all handlers to the Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		srv.mu.Lock()
		srv.conns[s.ID()] = s
		srv.mu.Unlock()
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "join", func(s socketio.Conn, payload struct {
		Name string `json:"name"`
	}) map[string]any {
		name := strings.TrimSpace(payload.Name)
		if name == "" {
			return srv.err(s, "invalid_name", "A display name is required")
		}
		if err := srv.coord.Join(s.ID(), name); err != nil {
			if errors.Is(err, game.ErrServerBusy) {
				s.Emit(game.EventServerBusy, map[string]any{"message": "All sessions are full, try again later"})
				return map[string]any{"error": "server_busy"}
			}
			return srv.err(s, "join_failed", err.Error())
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "ready", func(s socketio.Conn) map[string]any {
		if err := srv.coord.Ready(s.ID()); err != nil {
			log.Debug().Str("sid", s.ID()).Err(err).Msg("ready ignored")
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "submitAnswer", func(s socketio.Conn, payload struct {
		Answer int `json:"answer"`
	}) map[string]any {
		if err := srv.coord.SubmitAnswer(s.ID(), payload.Answer); err != nil {
			// Duplicate and late answers are isolated to the requester.
			log.Debug().Str("sid", s.ID()).Err(err).Msg("answer rejected")
			return srv.err(s, "answer_rejected", err.Error())
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "quit", func(s socketio.Conn) map[string]any {
		srv.coord.Leave(s.ID())
		return map[string]any{"ok": true}
	})

	// signal relays opaque peer-to-peer payloads (e.g. video chat offers)
	// between members of the same session. The coordinator never sees them.
	io.OnEvent("/", "signal", func(s socketio.Conn, payload struct {
		To   string          `json:"to"`
		Data json.RawMessage `json:"data"`
	}) {
		sid, ok := srv.coord.SessionOf(s.ID())
		if !ok {
			return
		}
		out := map[string]any{"from": s.ID(), "data": payload.Data}
		srv.mu.Lock()
		defer srv.mu.Unlock()
		for id, conn := range srv.members[sid] {
			if id == s.ID() {
				continue
			}
			if payload.To != "" && id != payload.To {
				continue
			}
			conn.Emit("signal", out)
		}
	})

	io.OnEvent("/", "latency:pong", func(s socketio.Conn, payload struct {
		T int64 `json:"t"`
	}) {
		srv.lat.Observe(s.ID(), float64(time.Now().UnixMilli()-payload.T))
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.coord.Leave(s.ID())
		srv.mu.Lock()
		delete(srv.conns, s.ID())
		srv.mu.Unlock()
		srv.lat.Forget(s.ID())
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()
	go srv.pingLoop()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// pingLoop samples round-trip time for every live connection. Clients echo
// the timestamp back via latency:pong.
func (srv *Server) pingLoop() {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for range t.C {
		now := time.Now().UnixMilli()
		srv.mu.Lock()
		for _, conn := range srv.conns {
			conn.Emit("latency:ping", map[string]any{"t": now})
		}
		srv.mu.Unlock()
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}
