// Package web serves the browser viewer: an embedded three.js page, GLB
// model streaming, and a websocket that mirrors scene and history state.
//
// The hub is concurrent (one reader goroutine per connection, mutex-guarded
// client set) but every scene, selection, and history touch is funneled onto
// a single apply goroutine, keeping the workspace single-threaded.
package web

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	mst "github.com/flywave/go-mst"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mesh-studio/internal/asset"
	"mesh-studio/internal/workspace"
)

//go:embed index.html
var indexHTML []byte

// Op is one viewer operation received over the websocket.
type Op struct {
	Kind    string      `json:"op"` // undo|redo|remove|select|move|rotate|scale|load|clear
	Handle  string      `json:"handle,omitempty"`
	Handles []string    `json:"handles,omitempty"`
	Value   *[3]float64 `json:"value,omitempty"`
	By      bool        `json:"by,omitempty"`    // relative transform
	Merge   bool        `json:"merge,omitempty"` // gesture step, eligible for history merging
	Path    string      `json:"path,omitempty"`  // load: path relative to the model dir
}

// State is the snapshot pushed to every client after each operation.
type State struct {
	Type     string        `json:"type"`
	Entities []EntityState `json:"entities"`
	History  HistoryState  `json:"history"`
}

type EntityState struct {
	Handle    string     `json:"handle"`
	Name      string     `json:"name"`
	Format    string     `json:"format"`
	Triangles int        `json:"triangles"`
	Position  [3]float64 `json:"position"`
	Rotation  [3]float64 `json:"rotation"`
	Scale     [3]float64 `json:"scale"`
	Selected  bool       `json:"selected"`
}

type HistoryState struct {
	CanUndo   bool   `json:"canUndo"`
	CanRedo   bool   `json:"canRedo"`
	UndoCount int    `json:"undoCount"`
	RedoCount int    `json:"redoCount"`
	LastLabel string `json:"lastLabel"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type task struct {
	fn   func()
	done chan struct{}
}

// client wraps a websocket connection with a write mutex: the reader
// goroutine answers errors while broadcasts come from other goroutines.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Server owns the HTTP surface and the apply goroutine.
type Server struct {
	ws       *workspace.Workspace
	modelDir string
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	ops  chan task
	quit chan struct{}
}

// New starts the apply goroutine and returns a server over ws. Load paths are
// resolved under modelDir. Call Close to stop the apply goroutine.
func New(ws *workspace.Workspace, modelDir string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if modelDir == "" {
		modelDir = "models"
	}
	s := &Server{
		ws:       ws,
		modelDir: modelDir,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*client]struct{}),
		ops:      make(chan task),
		quit:     make(chan struct{}),
	}
	go s.applyLoop()
	return s
}

// Close stops the apply goroutine. In-flight do calls return.
func (s *Server) Close() {
	close(s.quit)
}

func (s *Server) applyLoop() {
	for {
		select {
		case t := <-s.ops:
			t.fn()
			close(t.done)
		case <-s.quit:
			return
		}
	}
}

// do runs fn on the apply goroutine and blocks until it returns.
func (s *Server) do(fn func()) {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case s.ops <- t:
		<-t.done
	case <-s.quit:
	}
}

// Handler returns the HTTP surface: the viewer page, the websocket, and GLB
// model streaming.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/model/", s.handleModel)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// handleModel streams /model/{handle}.glb. The mesh pointer is fetched on the
// apply goroutine; mesh data is immutable after decode, so the slow encode
// runs outside it.
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/model/")
	handle, err := uuid.Parse(strings.TrimSuffix(name, ".glb"))
	if err != nil {
		http.Error(w, "bad model handle", http.StatusBadRequest)
		return
	}
	var mesh *mst.Mesh
	s.do(func() {
		if e := s.ws.Scene().Get(handle); e != nil {
			mesh = e.Mesh
		}
	})
	if mesh == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "model/gltf-binary")
	if err := asset.EncodeGLB(w, mesh); err != nil {
		s.log.Error("glb encode failed", "handle", handle, "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("viewer connected", "remote", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		conn.Close()
		s.log.Info("viewer disconnected", "remote", r.RemoteAddr)
	}()

	if data, err := json.Marshal(s.snapshot()); err == nil {
		if c.write(data) != nil {
			return
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var op Op
		if err := json.Unmarshal(data, &op); err != nil {
			s.sendError(c, fmt.Sprintf("bad message: %v", err))
			continue
		}
		if err := s.Apply(op); err != nil {
			s.sendError(c, err.Error())
		}
		s.broadcastState()
	}
}

func (s *Server) sendError(c *client, msg string) {
	data, err := json.Marshal(errorMessage{Type: "error", Error: msg})
	if err != nil {
		return
	}
	_ = c.write(data)
}

// Apply runs one operation on the apply goroutine and returns its error.
// Exported so shells and tests can drive operations without a websocket.
func (s *Server) Apply(op Op) error {
	var err error
	s.do(func() { err = s.applyOp(op) })
	return err
}

func (s *Server) applyOp(op Op) error {
	switch op.Kind {
	case "undo":
		if !s.ws.History().Undo() {
			return errors.New("nothing to undo")
		}
	case "redo":
		if !s.ws.History().Redo() {
			return errors.New("nothing to redo")
		}
	case "remove":
		if op.Handle == "" {
			if s.ws.RemoveSelected() == 0 {
				return errors.New("nothing selected")
			}
			return nil
		}
		handle, err := uuid.Parse(op.Handle)
		if err != nil {
			return fmt.Errorf("bad handle %q", op.Handle)
		}
		if !s.ws.Remove(handle) {
			return fmt.Errorf("no entity %s", op.Handle)
		}
	case "select":
		sel := s.ws.Selection()
		sel.Clear()
		for _, hs := range op.Handles {
			handle, err := uuid.Parse(hs)
			if err != nil {
				return fmt.Errorf("bad handle %q", hs)
			}
			sel.Add(handle)
		}
	case "move", "rotate", "scale":
		return s.applyTransform(op)
	case "load":
		path, err := s.resolveLoadPath(op.Path)
		if err != nil {
			return err
		}
		if _, err := s.ws.LoadModel(path); err != nil {
			return err
		}
	case "clear":
		s.ws.Scene().Clear()
		s.ws.Selection().Clear()
		s.ws.History().Clear()
	default:
		return fmt.Errorf("unknown op %q", op.Kind)
	}
	return nil
}

func (s *Server) applyTransform(op Op) error {
	if op.Value == nil {
		return fmt.Errorf("%s needs a value", op.Kind)
	}
	n := len(s.ws.Selection().Entities())
	if n == 0 {
		return errors.New("nothing selected")
	}
	v := vec3d.T(*op.Value)
	if op.By {
		switch op.Kind {
		case "move":
			return s.ws.TranslateBy(v, op.Merge)
		case "rotate":
			return s.ws.RotateBy(v, op.Merge)
		case "scale":
			return s.ws.ScaleBy(v, op.Merge)
		}
	}
	values := make([]vec3d.T, n)
	for i := range values {
		values[i] = v
	}
	switch op.Kind {
	case "move":
		return s.ws.Translate(values, op.Merge)
	case "rotate":
		return s.ws.Rotate(values, op.Merge)
	case "scale":
		return s.ws.Scale(values, op.Merge)
	}
	return nil
}

// resolveLoadPath keeps websocket loads inside the model directory.
func (s *Server) resolveLoadPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("load needs a path")
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("path %q escapes the model directory", path)
	}
	return filepath.Join(s.modelDir, clean), nil
}

// snapshot builds the state message on the apply goroutine.
func (s *Server) snapshot() State {
	var st State
	s.do(func() { st = s.buildState() })
	return st
}

func (s *Server) buildState() State {
	st := State{Type: "state", Entities: []EntityState{}}
	sel := s.ws.Selection()
	for _, e := range s.ws.Scene().Entities() {
		st.Entities = append(st.Entities, EntityState{
			Handle:    e.Handle.String(),
			Name:      e.Name,
			Format:    e.Format,
			Triangles: e.TriangleCount(),
			Position:  [3]float64(e.Transform.Position),
			Rotation:  [3]float64(e.Transform.Rotation),
			Scale:     [3]float64(e.Transform.Scale),
			Selected:  sel.Contains(e.Handle),
		})
	}
	hs := s.ws.History().State()
	st.History = HistoryState{
		CanUndo:   hs.CanUndo,
		CanRedo:   hs.CanRedo,
		UndoCount: hs.UndoCount,
		RedoCount: hs.RedoCount,
		LastLabel: hs.LastLabel,
	}
	return st
}

func (s *Server) broadcastState() {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if err := c.write(data); err != nil {
			c.conn.Close()
			delete(s.clients, c)
		}
	}
}
