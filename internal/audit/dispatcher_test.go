package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/audit"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
	block   chan struct{}
}

func (r *recordingSink) Emit(_ context.Context, e audit.Entry) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func (r *recordingSink) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.ID)
	}
	return out
}

func entry(id string) audit.Entry {
	return audit.Entry{ID: id, Action: audit.ActionLogin, Result: audit.ResultSuccess}
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &recordingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), entry("x"))
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher should report zero drops")
	}
}

func TestDispatcherPreservesOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	want := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range want {
		d.Emit(context.Background(), entry(id))
	}
	d.Close()

	got := sink.ids()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("order mismatch: got %v want %v", got, want)
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First entry is picked up by the worker and blocks in the sink, the
	// second fills the buffer, the rest are dropped.
	d.Emit(context.Background(), entry("1"))
	deadline := time.Now().Add(time.Second)
	for len(d.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Emit(context.Background(), entry("2"))
	d.Emit(context.Background(), entry("3"))
	d.Emit(context.Background(), entry("4"))

	if got := d.Dropped(); got != 2 {
		t.Fatalf("expected 2 dropped, got %d", got)
	}
	close(sink.block)
	d.Close()

	if got := sink.ids(); len(got) != 2 {
		t.Fatalf("expected 2 delivered, got %v", got)
	}
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), entry("1"))
	deadline := time.Now().Add(time.Second)
	for len(d.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Emit(context.Background(), entry("2"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	d.Emit(ctx, entry("3"))

	if d.Dropped() != 1 {
		t.Fatalf("expected cancelled emit to count as drop, got %d", d.Dropped())
	}
	close(sink.block)
	d.Close()
}

func TestDispatcherEmitAfterCloseIsIgnored(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 2}, sink)
	d.Close()
	d.Close()
	d.Emit(context.Background(), entry("late"))
	if len(sink.ids()) != 0 {
		t.Fatal("entry emitted after close must not be delivered")
	}
	if d.Dropped() != 1 {
		t.Fatalf("expected late entry to count as dropped, got %d", d.Dropped())
	}
}

func TestDispatcherCloseDuringEmitAccountsForEveryEntry(t *testing.T) {
	for _, dropIfFull := range []bool{false, true} {
		sink := &recordingSink{}
		d := NewDispatcher(Config{Enabled: true, BufferSize: 8, DropIfFull: dropIfFull}, sink)

		const emitters, perEmitter = 16, 50
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < emitters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < perEmitter; j++ {
					d.Emit(context.Background(), entry("e"))
				}
			}()
		}
		close(start)
		d.Close()
		wg.Wait()

		delivered := uint64(len(sink.ids()))
		if delivered+d.Dropped() != emitters*perEmitter {
			t.Fatalf("dropIfFull=%v: delivered %d + dropped %d != %d", dropIfFull, delivered, d.Dropped(), emitters*perEmitter)
		}
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), entry("j1"))
	s.Emit(context.Background(), entry("j2"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded audit.Entry
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "j2" || decoded.Action != audit.ActionLogin {
		t.Fatalf("unexpected entry: %+v", decoded)
	}

	NewJSONWriterSink(nil).Emit(context.Background(), entry("ignored"))
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewZapSink(zap.New(core))

	s.Emit(context.Background(), entry("ok"))
	failed := entry("bad").Failed("invalid_credentials")
	s.Emit(context.Background(), failed)

	all := logs.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(all))
	}
	if all[0].Level != zap.InfoLevel || all[1].Level != zap.WarnLevel {
		t.Fatalf("unexpected levels: %v %v", all[0].Level, all[1].Level)
	}
	if all[1].ContextMap()["error"] != "invalid_credentials" {
		t.Fatalf("missing error field: %v", all[1].ContextMap())
	}
}

type failingStore struct{ err error }

func (f failingStore) Append(context.Context, audit.Entry) error { return f.err }

func TestStoreSinkReportsErrors(t *testing.T) {
	want := errors.New("db down")
	var got error
	s := NewStoreSink(failingStore{err: want}, func(_ audit.Entry, err error) { got = err })
	s.Emit(context.Background(), entry("s"))
	if !errors.Is(got, want) {
		t.Fatalf("expected store error to be reported, got %v", got)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	MultiSink{a, nil, b}.Emit(context.Background(), entry("m"))
	if len(a.ids()) != 1 || len(b.ids()) != 1 {
		t.Fatal("expected both sinks to receive the entry")
	}
}

func TestChannelSink(t *testing.T) {
	s := NewChannelSink(0)
	s.Emit(context.Background(), entry("c"))
	select {
	case e := <-s.Entries():
		if e.ID != "c" {
			t.Fatalf("unexpected entry %q", e.ID)
		}
	default:
		t.Fatal("expected buffered entry")
	}
}
