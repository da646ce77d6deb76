// Package bus publishes session progress to a websocket hub as protocol
// frames. Publishing is best effort: a dead hub never stalls a session.
package bus

import (
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"emovox/internal/ser"
	"emovox/pkg/protocol"
)

// Name is the FROM token on every frame.
const Name = "EMOVOX"

const queueSize = 64

type Publisher struct {
	url     string
	timeout time.Duration
	dialer  *ws.Dialer

	// owned by run once Dial returns
	conn   *ws.Conn
	broken chan struct{}

	out  chan string
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// Dial connects to the hub and starts the writer. A nil dialer means
// ws.DefaultDialer.
func Dial(wsURL string, timeout time.Duration, dialer *ws.Dialer) (*Publisher, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("bus url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("bus url: unsupported scheme %q", u.Scheme)
	}
	if dialer == nil {
		dialer = ws.DefaultDialer
	}

	p := &Publisher{
		url:     u.String(),
		timeout: timeout,
		dialer:  dialer,
		out:     make(chan string, queueSize),
		done:    make(chan struct{}),
	}
	if err := p.connect(); err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", p.url)
	go p.run()
	return p, nil
}

func (p *Publisher) connect() error {
	conn, _, err := p.dialer.Dial(p.url, nil)
	if err != nil {
		return fmt.Errorf("dial bus: %w", err)
	}
	p.conn = conn
	p.broken = make(chan struct{})
	go drain(conn, p.broken)
	return nil
}

// drain reads until the connection fails. Close and ping frames are only
// handled while a read is in progress; hub payloads are discarded.
func drain(conn *ws.Conn, broken chan<- struct{}) {
	defer close(broken)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if !isClosed(err) {
				log.Debug("Bus read failed", "err", err)
			}
			return
		}
	}
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}

// reconnect replaces the current connection. On failure the publisher stays
// disconnected and the next frame dials again.
func (p *Publisher) reconnect() bool {
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn, p.broken = nil, nil
	}
	if err := p.connect(); err != nil {
		log.Warn("Bus reconnect failed", "url", p.url, "err", err)
		return false
	}
	log.Info("Reconnected to bus", "url", p.url)
	return true
}

func (p *Publisher) run() {
	defer close(p.done)
	for {
		select {
		case line, ok := <-p.out:
			if !ok {
				p.shutdown()
				return
			}
			p.send(line)
		case <-p.broken:
			log.Warn("Bus connection closed by hub, reconnecting", "url", p.url)
			p.reconnect()
		}
	}
}

func (p *Publisher) send(line string) {
	if p.conn == nil && !p.reconnect() {
		log.Warn("Bus frame dropped", "frame", line)
		return
	}
	err := p.write(line)
	if err == nil {
		return
	}
	log.Warn("Bus write failed, reconnecting", "err", err)
	if !p.reconnect() {
		log.Warn("Bus frame dropped", "frame", line)
		return
	}
	if err := p.write(line); err != nil {
		log.Warn("Bus frame dropped", "err", err, "frame", line)
	}
}

func (p *Publisher) shutdown() {
	if p.conn == nil {
		return
	}
	_ = p.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	_ = p.conn.Close()
}

func (p *Publisher) write(line string) error {
	if p.timeout > 0 {
		_ = p.conn.SetWriteDeadline(time.Now().Add(p.timeout))
	}
	log.Debug("Write ws", "msg", line)
	return p.conn.WriteMessage(ws.TextMessage, []byte(line))
}

// Publish queues a frame. Invalid frames are rejected; a full queue drops
// the frame.
func (p *Publisher) Publish(m *protocol.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}
	select {
	case p.out <- m.String():
		return nil
	default:
		return errQueueFull
	}
}

// Close flushes queued frames and closes the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.out)
	}
	p.mu.Unlock()
	<-p.done
	return nil
}

var (
	errClosed    = errors.New("bus closed")
	errQueueFull = errors.New("bus queue full")
)

func (p *Publisher) StageStarted(sessionID, stage string) {
	p.emit(&protocol.Message{
		To:   protocol.Broadcast,
		Verb: "STAGE",
		Noun: protocol.Token(stage),
		Args: []string{sessionID},
		From: Name,
	})
}

func (p *Publisher) Listened(_, _, _ string, emotion ser.Emotion) {
	p.emit(&protocol.Message{
		To:   protocol.Broadcast,
		Verb: "EMOTION",
		Noun: protocol.Token(emotion.Label),
		Args: []string{fmt.Sprintf("%d", int(math.Round(emotion.Confidence*100)))},
		From: Name,
	})
}

func (p *Publisher) StageFinished(string, string, time.Duration) {}

func (p *Publisher) Degraded(boundary string, _ error) {
	p.emit(&protocol.Message{
		To:   protocol.Broadcast,
		Verb: "DEGRADED",
		Noun: protocol.Token(boundary),
		From: Name,
	})
}

func (p *Publisher) emit(m *protocol.Message) {
	if err := p.Publish(m); err != nil {
		log.Warn("Bus publish skipped", "err", err, "frame", m.String())
	}
}
