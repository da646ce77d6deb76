// Package trigger provides the operator cues that start a recording.
package trigger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	log "log/slog"
	"sync"

	"emovox/internal/ipc"
)

// Keyboard waits for Enter on in.
type Keyboard struct {
	out   io.Writer
	lines chan struct{}
	done  chan struct{}
	quit  chan struct{}
	once  sync.Once
}

func NewKeyboard(in io.Reader, out io.Writer) *Keyboard {
	k := &Keyboard{
		out:   out,
		lines: make(chan struct{}),
		done:  make(chan struct{}),
		quit:  make(chan struct{}),
	}
	go k.read(in)
	return k
}

func (k *Keyboard) read(in io.Reader) {
	defer close(k.done)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case k.lines <- struct{}{}:
		case <-k.quit:
			return
		}
	}
}

// Wait returns io.EOF once input ends or the keyboard is closed.
func (k *Keyboard) Wait(ctx context.Context) error {
	if k.out != nil {
		fmt.Fprint(k.out, "\nPress Enter to start recording...")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-k.lines:
		return nil
	case <-k.done:
		return io.EOF
	case <-k.quit:
		return io.EOF
	}
}

// Close stops delivering lines. The reader exits after its pending read
// returns; a blocked read on in is not interrupted.
func (k *Keyboard) Close() error {
	k.once.Do(func() { close(k.quit) })
	return nil
}

// Socket waits for a trigger command on the ipc socket.
type Socket struct {
	srv   *ipc.Server
	fires chan struct{}
}

func NewSocket(path string) (*Socket, error) {
	s := &Socket{fires: make(chan struct{}, 1)}
	srv, err := ipc.StartServer(path, s.handle)
	if err != nil {
		return nil, err
	}
	s.srv = srv
	return s, nil
}

func (s *Socket) handle(msg ipc.ControlMessage) {
	switch msg.Cmd {
	case ipc.CmdTrigger:
		select {
		case s.fires <- struct{}{}:
		default:
			log.Debug("Trigger already pending")
		}
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
	}
}

func (s *Socket) Wait(ctx context.Context) error {
	log.Info("Waiting for trigger", "via", "emovox-ctl")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.fires:
		return nil
	}
}

func (s *Socket) Close() error { return s.srv.Close() }
