// Package debugserver streams the interpreter's per-instruction
// execution trace to a browser-based inspector over a websocket, and
// accepts step/continue commands back. It has no counterpart in the
// teacher, which never runs an interpreter behind a network boundary;
// it is built from this module's own vm.State.Trace hook plus the
// canonical gorilla/websocket request/response-pump shape, and
// google/uuid for session identifiers, per this module's domain-stack
// wiring.
package debugserver

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chazu/rill/auxlib"
	"github.com/chazu/rill/reader"
	"github.com/chazu/rill/value"
	"github.com/chazu/rill/vm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// event is one message sent from server to client: either a trace step
// or a terminal run outcome.
type event struct {
	Type      string `json:"type"` // "step", "done", "error"
	SessionID string `json:"session_id"`
	ChunkName string `json:"chunk_name,omitempty"`
	Line      int    `json:"line,omitempty"`
	PC        int    `json:"pc,omitempty"`
	Op        string `json:"op,omitempty"`
	Result    string `json:"result,omitempty"`
	Message   string `json:"message,omitempty"`
}

// command is one message sent from client to server.
type command struct {
	Cmd string `json:"cmd"` // "step" or "continue"
}

// Session is one attached debug client running a single chunk.
type Session struct {
	ID   string
	conn *websocket.Conn

	writeMu  sync.Mutex
	resume   chan string // delivers each incoming command's Cmd, closed on disconnect
	stepping atomic.Bool // true once the client has asked to single-step
}

// Handler upgrades an HTTP request to a websocket and runs path's source
// under a new debug session, streaming its execution trace until the
// chunk returns or the client disconnects.
func Handler(heap *value.Heap) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			http.Error(w, "missing ?path=", http.StatusBadRequest)
			return
		}
		chunk, err := reader.File(path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("debugserver: upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		s := &Session{ID: uuid.New().String(), conn: conn, resume: make(chan string)}
		go s.readCommands()
		s.run(heap, chunk)
	}
}

func (s *Session) readCommands() {
	for {
		var c command
		if err := s.conn.ReadJSON(&c); err != nil {
			close(s.resume)
			return
		}
		s.stepping.Store(c.Cmd == "step")
		s.resume <- c.Cmd
	}
}

func (s *Session) run(heap *value.Heap, chunk reader.Chunk) {
	fp, _, err := auxlib.Load(heap, chunk)
	if err != nil {
		s.send(event{Type: "error", SessionID: s.ID, Message: err.Error()})
		return
	}

	state := vm.New(heap)
	state.Trace = s.onStep

	result, err := state.Run(fp)
	if err != nil {
		s.send(event{Type: "error", SessionID: s.ID, Message: err.Error()})
		return
	}
	s.send(event{Type: "done", SessionID: s.ID, Result: result.TypeName()})
}

// onStep publishes one execution step and, if the client has asked to
// single-step, blocks until the next command arrives before letting the
// interpreter continue. Continuous mode (the default) never blocks.
func (s *Session) onStep(step vm.Step) {
	s.send(event{
		Type:      "step",
		SessionID: s.ID,
		ChunkName: step.ChunkName,
		Line:      step.Line,
		PC:        step.PC,
		Op:        step.Op,
	})

	if !s.stepping.Load() {
		return
	}
	<-s.resume
}

func (s *Session) send(e event) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(e); err != nil {
		log.Printf("debugserver: write failed: %v", err)
	}
}

