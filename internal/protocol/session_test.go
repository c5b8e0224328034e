package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeConn scripts the container side of a session: it hands the client a
// readiness verdict, answers GetFiles with a canned listing, and records
// every frame the client writes.
type fakeConn struct {
	mu       sync.Mutex
	incoming chan []byte
	sent     []Envelope
	listing  *Files
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn(ready bool, listing *Files) *fakeConn {
	c := &fakeConn{incoming: make(chan []byte, 16), listing: listing, closed: make(chan struct{})}
	verdict := TypeNotInitialized
	if ready {
		verdict = TypeInitialized
	}
	c.incoming <- MarshalEnvelope(Envelope{Type: verdict})
	return c
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-c.incoming:
		return websocket.BinaryMessage, frame, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	env, err := UnmarshalEnvelope(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sent = append(c.sent, env)
	c.mu.Unlock()

	if env.Type == TypeGetFiles && c.listing != nil {
		c.incoming <- MarshalEnvelope(Envelope{Type: TypeFiles, Payload: MarshalFiles(*c.listing)})
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) envelopes() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Envelope(nil), c.sent...)
}

func testSession(reg *Registry, dial Dialer) *Session {
	s := NewSession("wss://platform.example.com/control", reg)
	s.Dial = dial
	s.Timeout = 2 * time.Second
	s.RetryWait = time.Millisecond
	s.CloseGrace = time.Millisecond
	return s
}

func TestSessionConvergence(t *testing.T) {
	conn := newFakeConn(true, &Files{Entries: []FileEntry{
		{Path: "x", Data: []byte("old")},
		{Path: "y", Data: []byte("same")},
	}})

	reg := NewRegistry()
	s := testSession(reg, func(ctx context.Context, url string) (Conn, error) {
		if url != "wss://platform.example.com/control/tok-1" {
			t.Errorf("dialed %q", url)
		}
		return conn, nil
	})

	desired := map[string]string{"y": "same", "z": "new"}
	if err := s.Run(context.Background(), "tok-1", desired); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sent := conn.envelopes()
	if len(sent) == 0 || sent[0].Type != TypeGetFiles {
		t.Fatalf("first frame = %+v, want GetFiles", sent)
	}

	var deletes []string
	var writes []SetFile
	for _, env := range sent[1:] {
		switch env.Type {
		case TypeDeleteFile:
			del, err := UnmarshalDeleteFile(env.Payload)
			if err != nil {
				t.Fatal(err)
			}
			deletes = append(deletes, del.Path)
		case TypeSetFile:
			set, err := UnmarshalSetFile(env.Payload)
			if err != nil {
				t.Fatal(err)
			}
			writes = append(writes, set)
		default:
			t.Errorf("unexpected frame type %v", env.Type)
		}
	}

	if len(deletes) != 1 || deletes[0] != "x" {
		t.Errorf("deletes = %v, want exactly [x]", deletes)
	}
	if len(writes) != 1 || writes[0].Path != "z" || string(writes[0].Data) != "new" {
		t.Errorf("writes = %+v, want exactly SetFile(z, new)", writes)
	}

	// The caller's desired set stays pristine; only the working copy is pruned.
	if len(desired) != 2 || desired["y"] != "same" {
		t.Errorf("desired set was mutated: %#v", desired)
	}
}

func TestSessionDeletionsPrecedeWrites(t *testing.T) {
	conn := newFakeConn(true, &Files{Entries: []FileEntry{
		{Path: "gone", Data: []byte("1")},
	}})

	reg := NewRegistry()
	s := testSession(reg, func(ctx context.Context, url string) (Conn, error) { return conn, nil })

	if err := s.Run(context.Background(), "t", map[string]string{"new": "2"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sent := conn.envelopes()
	var order []MessageType
	for _, env := range sent {
		order = append(order, env.Type)
	}
	want := []MessageType{TypeGetFiles, TypeDeleteFile, TypeSetFile}
	if len(order) != len(want) {
		t.Fatalf("frames = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("frames = %v, want %v", order, want)
		}
	}
}

func TestSessionRetriesNotInitializedWithPristineSet(t *testing.T) {
	first := newFakeConn(false, nil)
	second := newFakeConn(true, &Files{})

	reg := NewRegistry()
	dials := 0
	s := testSession(reg, func(ctx context.Context, url string) (Conn, error) {
		dials++
		if dials == 1 {
			return first, nil
		}
		return second, nil
	})

	desired := map[string]string{"b": "2"}
	if err := s.Run(context.Background(), "t", desired); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if dials != 2 {
		t.Errorf("dials = %d, want 2 (one retry)", dials)
	}

	var writes []SetFile
	for _, env := range second.envelopes() {
		if env.Type == TypeSetFile {
			set, err := UnmarshalSetFile(env.Payload)
			if err != nil {
				t.Fatal(err)
			}
			writes = append(writes, set)
		}
	}
	if len(writes) != 1 || writes[0].Path != "b" || string(writes[0].Data) != "2" {
		t.Errorf("retry writes = %+v, want the original desired set", writes)
	}
}

func TestSessionTimeoutResolvesWithoutListing(t *testing.T) {
	// A container that is ready but never answers GetFiles.
	conn := newFakeConn(true, nil)

	reg := NewRegistry()
	s := testSession(reg, func(ctx context.Context, url string) (Conn, error) { return conn, nil })
	s.Timeout = 50 * time.Millisecond

	start := time.Now()
	if err := s.Run(context.Background(), "t", map[string]string{"a": "1"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run took %v, should resolve at the timeout", elapsed)
	}

	// The draining socket is still registered; shutdown closes it.
	if reg.Open() == 0 {
		t.Error("expected the abandoned socket to stay registered")
	}
	reg.CloseAll(0)
	if reg.Open() != 0 {
		t.Errorf("open sockets after CloseAll = %d, want 0", reg.Open())
	}
}

func TestSessionDialFailureResolvesAtTimeout(t *testing.T) {
	reg := NewRegistry()
	s := testSession(reg, func(ctx context.Context, url string) (Conn, error) {
		return nil, errors.New("connection refused")
	})
	s.Timeout = 20 * time.Millisecond

	if err := s.Run(context.Background(), "t", map[string]string{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSessionContextCancellation(t *testing.T) {
	conn := newFakeConn(true, nil)
	reg := NewRegistry()
	s := testSession(reg, func(ctx context.Context, url string) (Conn, error) { return conn, nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx, "t", map[string]string{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	reg.CloseAll(0)
}
