package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/mlefort/LambdaGo/internal/logic/session"
	"github.com/mlefort/LambdaGo/internal/protocol"
)

// Instrument is the slice of the device session the web panel drives.
type Instrument interface {
	Move(wheel any, position, speed int, block bool) error
	SetShutter(shutter any, open bool, block bool) error
	SetShutterMode(shutter any, fast bool, block bool) error
	TargetPosition(wheel any) (int, error)
	Wheels() []protocol.Channel
	Shutters() []protocol.Channel
}

// WheelInfo describes one detected filter wheel for the front end.
type WheelInfo struct {
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Filters  []string `json:"filters,omitempty"`
}

// DeviceInfo is the payload of GET /device.
type DeviceInfo struct {
	Wheels   []WheelInfo `json:"wheels"`
	Shutters []string    `json:"shutters"`
}

// MoveRequest is the body of POST /move.
type MoveRequest struct {
	Wheel    string `json:"wheel"`
	Position int    `json:"position"`
	Speed    *int   `json:"speed,omitempty"` // nil means the configured default
}

// ShutterRequest is the body of POST /shutter.
type ShutterRequest struct {
	Shutter string `json:"shutter"`
	State   string `json:"state"` // "open" or "closed"
}

// ShutterModeRequest is the body of POST /shutter/mode.
type ShutterModeRequest struct {
	Shutter string `json:"shutter"`
	Mode    string `json:"mode"` // "fast" or "soft"
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	DefaultSpeed int
	Filters      map[string][]string // wheel name to position labels

	instrument Instrument
	instMu     sync.Mutex // serializes commands; the controller holds one pending echo
	staticFS   fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If instrument is nil, command routes return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, instrument Instrument, defaultSpeed int, filters map[string][]string, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		DefaultSpeed: defaultSpeed,
		Filters:      filters,
		instrument:   instrument,
		staticFS:     staticFS,
	}
}

// HandleDevice returns the detected hardware and its filter labels as JSON.
func (h *Handlers) HandleDevice(w http.ResponseWriter, r *http.Request) {
	if h.instrument == nil {
		http.Error(w, "instrument not connected", http.StatusServiceUnavailable)
		return
	}

	h.instMu.Lock()
	info := DeviceInfo{Wheels: []WheelInfo{}, Shutters: []string{}}
	for _, wheel := range h.instrument.Wheels() {
		pos, err := h.instrument.TargetPosition(wheel)
		if err != nil {
			pos = 0
		}
		info.Wheels = append(info.Wheels, WheelInfo{
			Name:     wheel.Name(),
			Position: pos,
			Filters:  h.Filters[wheel.Name()],
		})
	}
	for _, shutter := range h.instrument.Shutters() {
		info.Shutters = append(info.Shutters, shutter.Name())
	}
	h.instMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleMove handles POST /move to position a filter wheel.
func (h *Handlers) HandleMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	speed := h.DefaultSpeed
	if req.Speed != nil {
		speed = *req.Speed
	}

	if !h.command(w, func() error {
		return h.instrument.Move(req.Wheel, req.Position, speed, true)
	}) {
		return
	}

	label := ""
	if labels := h.Filters[req.Wheel]; req.Position >= 0 && req.Position < len(labels) {
		label = " (" + labels[req.Position] + ")"
	}
	h.Broadcaster.BroadcastMsg(fmt.Sprintf("Wheel %s moved to position %d%s", req.Wheel, req.Position, label))
	writeOK(w)
}

// HandleShutter handles POST /shutter to open or close a shutter.
func (h *Handlers) HandleShutter(w http.ResponseWriter, r *http.Request) {
	var req ShutterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	open, err := session.ParseShutterState(req.State)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.command(w, func() error {
		return h.instrument.SetShutter(req.Shutter, open, true)
	}) {
		return
	}
	h.Broadcaster.BroadcastMsg(fmt.Sprintf("Shutter %s is now %s", req.Shutter, req.State))
	writeOK(w)
}

// HandleShutterMode handles POST /shutter/mode to switch fast/soft actuation.
func (h *Handlers) HandleShutterMode(w http.ResponseWriter, r *http.Request) {
	var req ShutterModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	fast, err := session.ParseShutterMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.command(w, func() error {
		return h.instrument.SetShutterMode(req.Shutter, fast, true)
	}) {
		return
	}
	h.Broadcaster.BroadcastMsg(fmt.Sprintf("Shutter %s set to %s mode", req.Shutter, req.Mode))
	writeOK(w)
}

// command runs one instrument command under the session mutex and maps
// its error onto an HTTP status. It reports whether the command succeeded.
func (h *Handlers) command(w http.ResponseWriter, fn func() error) bool {
	if h.instrument == nil {
		http.Error(w, "instrument not connected", http.StatusServiceUnavailable)
		return false
	}

	h.instMu.Lock()
	err := fn()
	h.instMu.Unlock()

	if err == nil {
		return true
	}
	if errors.Is(err, session.ErrInvalidArgument) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	h.Broadcaster.BroadcastErr("Command failed: " + err.Error())
	http.Error(w, err.Error(), http.StatusInternalServerError)
	return false
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
