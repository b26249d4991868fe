package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/mlefort/LambdaGo/internal/logic/session"
	"github.com/mlefort/LambdaGo/internal/protocol"
)

// fakeInstrument records commands and returns a canned error.
type fakeInstrument struct {
	calls []string
	err   error
}

func (f *fakeInstrument) Move(wheel any, position, speed int, block bool) error {
	f.calls = append(f.calls, fmt.Sprintf("move %v %d %d block=%t", wheel, position, speed, block))
	return f.err
}

func (f *fakeInstrument) SetShutter(shutter any, open bool, block bool) error {
	f.calls = append(f.calls, fmt.Sprintf("shutter %v open=%t", shutter, open))
	return f.err
}

func (f *fakeInstrument) SetShutterMode(shutter any, fast bool, block bool) error {
	f.calls = append(f.calls, fmt.Sprintf("mode %v fast=%t", shutter, fast))
	return f.err
}

func (f *fakeInstrument) TargetPosition(wheel any) (int, error) { return 3, nil }

func (f *fakeInstrument) Wheels() []protocol.Channel {
	return []protocol.Channel{protocol.ChannelA}
}

func (f *fakeInstrument) Shutters() []protocol.Channel {
	return []protocol.Channel{protocol.ChannelA, protocol.ChannelB}
}

func newTestHandlers(inst Instrument) *Handlers {
	staticFS := fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte("<html>test</html>")},
	}
	filters := map[string][]string{"A": {"DAPI", "GFP", "RFP"}}
	return NewHandlers(NewStatusBroadcaster(), inst, 6, filters, staticFS)
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

// ---------- HandleDevice ----------

func TestHandleDevice(t *testing.T) {
	h := newTestHandlers(&fakeInstrument{})
	req := httptest.NewRequest(http.MethodGet, "/device", nil)
	w := httptest.NewRecorder()

	h.HandleDevice(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var info DeviceInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(info.Wheels) != 1 || info.Wheels[0].Name != "A" {
		t.Fatalf("wheels = %+v, want one wheel A", info.Wheels)
	}
	if info.Wheels[0].Position != 3 {
		t.Errorf("wheel A position = %d, want 3", info.Wheels[0].Position)
	}
	if len(info.Wheels[0].Filters) != 3 || info.Wheels[0].Filters[1] != "GFP" {
		t.Errorf("wheel A filters = %v", info.Wheels[0].Filters)
	}
	if len(info.Shutters) != 2 || info.Shutters[0] != "A" || info.Shutters[1] != "B" {
		t.Errorf("shutters = %v, want [A B]", info.Shutters)
	}
}

func TestHandleDevice_NotConnected(t *testing.T) {
	h := newTestHandlers(nil)
	req := httptest.NewRequest(http.MethodGet, "/device", nil)
	w := httptest.NewRecorder()

	h.HandleDevice(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// ---------- HandleMove ----------

func TestHandleMove_DefaultSpeed(t *testing.T) {
	inst := &fakeInstrument{}
	h := newTestHandlers(inst)

	w := postJSON(t, h.HandleMove, "/move", MoveRequest{Wheel: "A", Position: 4})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(inst.calls) != 1 || inst.calls[0] != "move A 4 6 block=true" {
		t.Errorf("calls = %v", inst.calls)
	}
}

func TestHandleMove_ExplicitSpeed(t *testing.T) {
	inst := &fakeInstrument{}
	h := newTestHandlers(inst)
	speed := 2

	w := postJSON(t, h.HandleMove, "/move", MoveRequest{Wheel: "B", Position: 7, Speed: &speed})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(inst.calls) != 1 || inst.calls[0] != "move B 7 2 block=true" {
		t.Errorf("calls = %v", inst.calls)
	}
}

func TestHandleMove_InvalidJSON(t *testing.T) {
	h := newTestHandlers(&fakeInstrument{})
	req := httptest.NewRequest(http.MethodPost, "/move", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	h.HandleMove(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleMove_InvalidArgumentIs400(t *testing.T) {
	inst := &fakeInstrument{err: fmt.Errorf("no wheel on channel C: %w", session.ErrInvalidArgument)}
	h := newTestHandlers(inst)

	w := postJSON(t, h.HandleMove, "/move", MoveRequest{Wheel: "C", Position: 0})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleMove_ProtocolErrorIs500AndBroadcast(t *testing.T) {
	inst := &fakeInstrument{err: fmt.Errorf("echo mismatch: %w", session.ErrProtocol)}
	h := newTestHandlers(inst)
	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w := postJSON(t, h.HandleMove, "/move", MoveRequest{Wheel: "A", Position: 1})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	evt := receiveEvent(t, ch)
	if evt.Level != "error" || !strings.Contains(evt.Msg, "echo mismatch") {
		t.Errorf("broadcast event = %+v", evt)
	}
}

func TestHandleMove_NotConnected(t *testing.T) {
	h := newTestHandlers(nil)

	w := postJSON(t, h.HandleMove, "/move", MoveRequest{Wheel: "A", Position: 0})

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// ---------- HandleShutter ----------

func TestHandleShutter(t *testing.T) {
	cases := []struct {
		state string
		want  string
	}{
		{"open", "shutter A open=true"},
		{"closed", "shutter A open=false"},
	}
	for _, tc := range cases {
		t.Run(tc.state, func(t *testing.T) {
			inst := &fakeInstrument{}
			h := newTestHandlers(inst)

			w := postJSON(t, h.HandleShutter, "/shutter", ShutterRequest{Shutter: "A", State: tc.state})

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if len(inst.calls) != 1 || inst.calls[0] != tc.want {
				t.Errorf("calls = %v, want [%s]", inst.calls, tc.want)
			}
		})
	}
}

func TestHandleShutter_BadState(t *testing.T) {
	inst := &fakeInstrument{}
	h := newTestHandlers(inst)

	w := postJSON(t, h.HandleShutter, "/shutter", ShutterRequest{Shutter: "A", State: "ajar"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(inst.calls) != 0 {
		t.Errorf("no command should reach the instrument, got %v", inst.calls)
	}
}

// ---------- HandleShutterMode ----------

func TestHandleShutterMode(t *testing.T) {
	cases := []struct {
		mode string
		want string
	}{
		{"fast", "mode B fast=true"},
		{"soft", "mode B fast=false"},
	}
	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			inst := &fakeInstrument{}
			h := newTestHandlers(inst)

			w := postJSON(t, h.HandleShutterMode, "/shutter/mode", ShutterModeRequest{Shutter: "B", Mode: tc.mode})

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if len(inst.calls) != 1 || inst.calls[0] != tc.want {
				t.Errorf("calls = %v, want [%s]", inst.calls, tc.want)
			}
		})
	}
}

func TestHandleShutterMode_BadMode(t *testing.T) {
	inst := &fakeInstrument{}
	h := newTestHandlers(inst)

	w := postJSON(t, h.HandleShutterMode, "/shutter/mode", ShutterModeRequest{Shutter: "B", Mode: "turbo"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(inst.calls) != 0 {
		t.Errorf("no command should reach the instrument, got %v", inst.calls)
	}
}

// ---------- ServeIndex ----------

func TestServeIndex(t *testing.T) {
	h := newTestHandlers(&fakeInstrument{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	h.ServeIndex(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html; charset=utf-8", ct)
	}
	if !strings.Contains(w.Body.String(), "<html>") {
		t.Error("body should contain HTML content")
	}
}
