package bus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"

	"emovox/internal/ser"
)

func hub(t *testing.T) (string, <-chan string) {
	t.Helper()
	frames := make(chan string, 16)
	up := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- string(msg)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), frames
}

func next(t *testing.T, frames <-chan string) string {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return ""
	}
}

func TestPublisherFrames(t *testing.T) {
	url, frames := hub(t)
	p, err := Dial(url, time.Second, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer p.Close()

	p.StageStarted("abc-1", "adaptive_dialogue")
	if got, want := next(t, frames), "ALL:STAGE:ADAPTIVE_DIALOGUE:abc-1:EMOVOX"; got != want {
		t.Fatalf("frame = %q, want %q", got, want)
	}

	p.Listened("abc-1", "greeting", "hi", ser.Emotion{Label: "happy", Confidence: 0.876})
	if got, want := next(t, frames), "ALL:EMOTION:HAPPY:88:EMOVOX"; got != want {
		t.Fatalf("frame = %q, want %q", got, want)
	}

	p.Degraded("ser", nil)
	if got, want := next(t, frames), "ALL:DEGRADED:SER:EMOVOX"; got != want {
		t.Fatalf("frame = %q, want %q", got, want)
	}
}

// flakyHub closes the first connection after one frame and keeps every later
// connection open. accepted receives the number of each new connection.
func flakyHub(t *testing.T) (string, <-chan string, <-chan int) {
	t.Helper()
	frames := make(chan string, 16)
	accepted := make(chan int, 4)
	var n atomic.Int32
	up := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		id := int(n.Add(1))
		accepted <- id
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- string(msg)
			if id == 1 {
				_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseGoingAway, "restart"))
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), frames, accepted
}

func waitConn(t *testing.T, accepted <-chan int, want int) {
	t.Helper()
	select {
	case got := <-accepted:
		if got != want {
			t.Fatalf("connection = %d, want %d", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for connection %d", want)
	}
}

func TestPublisherReconnectsAfterHubClose(t *testing.T) {
	url, frames, accepted := flakyHub(t)
	p, err := Dial(url, time.Second, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer p.Close()
	waitConn(t, accepted, 1)

	p.StageStarted("abc-1", "greeting")
	if got, want := next(t, frames), "ALL:STAGE:GREETING:abc-1:EMOVOX"; got != want {
		t.Fatalf("frame = %q, want %q", got, want)
	}

	// the close frame is noticed by the reader, not by a later write
	waitConn(t, accepted, 2)

	p.StageStarted("abc-1", "introduction")
	p.Listened("abc-1", "introduction", "hi", ser.Emotion{Label: "sad", Confidence: 0.5})
	if got, want := next(t, frames), "ALL:STAGE:INTRODUCTION:abc-1:EMOVOX"; got != want {
		t.Fatalf("frame after reconnect = %q, want %q", got, want)
	}
	if got, want := next(t, frames), "ALL:EMOTION:SAD:50:EMOVOX"; got != want {
		t.Fatalf("frame after reconnect = %q, want %q", got, want)
	}
}

func TestDialRejectsHTTP(t *testing.T) {
	if _, err := Dial("http://localhost:1", time.Second, nil); err == nil {
		t.Fatal("Dial() expected error for http scheme")
	}
}

func TestPublishAfterClose(t *testing.T) {
	url, _ := hub(t)
	p, err := Dial(url, time.Second, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// must not panic on closed queue
	p.StageStarted("abc-1", "closing")
}
