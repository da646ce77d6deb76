package duck

import (
	"context"
	"testing"
)

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52428 /  80% / -5.81 dB,   front-right: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: front-left: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "emovox"
Sink Input #bogus
	Volume: 10%
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)
	if len(got) != 2 {
		t.Fatalf("len(streams) = %d, want 2: %+v", len(got), got)
	}
	if got[0] != (stream{ID: 41, Volume: 80, AppName: "Firefox"}) {
		t.Fatalf("streams[0] = %+v", got[0])
	}
	if got[1] != (stream{ID: 42, Volume: 100, AppName: "emovox"}) {
		t.Fatalf("streams[1] = %+v", got[1])
	}
}

type fakeMixer struct {
	streams []stream
	volumes map[int]int
}

func (f *fakeMixer) List(context.Context) ([]stream, error) {
	out := make([]stream, len(f.streams))
	for i, s := range f.streams {
		if v, ok := f.volumes[s.ID]; ok {
			s.Volume = v
		}
		out[i] = s
	}
	return out, nil
}

func (f *fakeMixer) SetVolume(_ context.Context, id, percent int) error {
	f.volumes[id] = percent
	return nil
}

func TestDuckAndRestoreSkipsSelf(t *testing.T) {
	m := &fakeMixer{
		streams: []stream{{ID: 1, Volume: 80, AppName: "Firefox"}, {ID: 2, Volume: 100, AppName: "emovox"}},
		volumes: map[int]int{},
	}
	d := newWithMixer(m, []string{"emovox"}, 10)
	ctx := context.Background()

	if err := d.DuckOthers(ctx, 0.25, 0); err != nil {
		t.Fatalf("DuckOthers() error = %v", err)
	}
	if m.volumes[1] != 20 {
		t.Fatalf("ducked volume = %d, want 20", m.volumes[1])
	}
	if _, touched := m.volumes[2]; touched {
		t.Fatalf("own stream was ducked")
	}

	if err := d.UnduckOthers(ctx, 0); err != nil {
		t.Fatalf("UnduckOthers() error = %v", err)
	}
	if m.volumes[1] != 80 {
		t.Fatalf("restored volume = %d, want 80", m.volumes[1])
	}
}

func TestDuckRespectsMinimumVolume(t *testing.T) {
	m := &fakeMixer{streams: []stream{{ID: 7, Volume: 40, AppName: "mpv"}}, volumes: map[int]int{}}
	d := newWithMixer(m, nil, 30)

	if err := d.DuckOthers(context.Background(), 0.1, 0); err != nil {
		t.Fatalf("DuckOthers() error = %v", err)
	}
	if m.volumes[7] != 30 {
		t.Fatalf("ducked volume = %d, want floor 30", m.volumes[7])
	}
}

func TestUnduckWithoutDuckIsNoop(t *testing.T) {
	m := &fakeMixer{streams: []stream{{ID: 1, Volume: 50}}, volumes: map[int]int{}}
	d := newWithMixer(m, nil, 0)
	if err := d.UnduckOthers(context.Background(), 0); err != nil {
		t.Fatalf("UnduckOthers() error = %v", err)
	}
	if len(m.volumes) != 0 {
		t.Fatalf("volumes changed: %v", m.volumes)
	}
}
