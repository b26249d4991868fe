package web

import (
	"encoding/json"
	"testing"
	"time"
)

func receiveEvent(t *testing.T, ch <-chan string) StatusEvent {
	t.Helper()
	select {
	case msg := <-ch:
		var evt StatusEvent
		if err := json.Unmarshal([]byte(msg), &evt); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
		return StatusEvent{}
	}
}

func TestBroadcaster_SubscribeAndReceive(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Broadcast("info", "hello")

	evt := receiveEvent(t, ch)
	if evt.Msg != "hello" {
		t.Errorf("msg = %q, want \"hello\"", evt.Msg)
	}
	if evt.Level != "info" {
		t.Errorf("level = %q, want \"info\"", evt.Level)
	}
	if evt.Time == "" {
		t.Error("event should have a timestamp")
	}
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewStatusBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Broadcast("info", "multi")

	for i, ch := range []<-chan string{ch1, ch2} {
		if evt := receiveEvent(t, ch); evt.Msg != "multi" {
			t.Errorf("subscriber %d: msg = %q, want \"multi\"", i, evt.Msg)
		}
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}

	// Broadcasting after unsubscribe should not panic either.
	b.Broadcast("info", "after unsub")
}

func TestBroadcaster_FullChannelDropsMessage(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	// Fill the channel buffer (64 messages)
	for i := 0; i < 64; i++ {
		b.Broadcast("info", "fill")
	}

	// This should not panic or block; the message is silently dropped.
	b.Broadcast("info", "overflow")

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			if count != 64 {
				t.Errorf("expected 64 buffered messages, got %d", count)
			}
			return
		}
	}
}

func TestBroadcaster_Conveniences(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.BroadcastMsg("fine")
	if evt := receiveEvent(t, ch); evt.Level != "info" || evt.Msg != "fine" {
		t.Errorf("BroadcastMsg event = %+v", evt)
	}

	b.BroadcastErr("broken")
	if evt := receiveEvent(t, ch); evt.Level != "error" || evt.Msg != "broken" {
		t.Errorf("BroadcastErr event = %+v", evt)
	}
}

func TestBroadcastWriter_Write(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := BroadcastWriter(b)
	in := []byte("  trimmed message  \n")
	n, err := w.Write(in)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(in) {
		t.Errorf("n = %d, want %d", n, len(in))
	}

	if evt := receiveEvent(t, ch); evt.Msg != "trimmed message" {
		t.Errorf("msg = %q, want \"trimmed message\"", evt.Msg)
	}
}

func TestBroadcastWriter_EmptyWriteIgnored(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := BroadcastWriter(b)
	w.Write([]byte("   \n"))

	select {
	case <-ch:
		t.Error("expected no message for whitespace-only write")
	case <-time.After(50 * time.Millisecond):
		// expected: no message
	}
}
