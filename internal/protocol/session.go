package protocol

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bianoble/course-sync/internal/logging"
)

// Default session timing. All three are injectable for tests.
const (
	defaultTimeout    = 10 * time.Second
	defaultRetryWait  = 1 * time.Second
	defaultCloseGrace = 1 * time.Second
)

// Conn is the subset of the websocket connection a session drives.
// *websocket.Conn satisfies it directly.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens the control socket for a session attempt.
type Dialer func(ctx context.Context, url string) (Conn, error)

// DialWebsocket is the production dialer: a binary-mode websocket to the
// container control endpoint.
func DialWebsocket(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, nil
}

type sessionState int

const (
	stateAwaitingReady sessionState = iota
	stateAwaitingListing
	stateConverging
	stateClosing
)

// Session converges one container's file system to a desired file set. One
// Session value is reused across lessons; each Run is an independent
// sync conversation.
type Session struct {
	ControlURL string
	Dial       Dialer
	Registry   *Registry

	// Timeout bounds one Run end to end, retries included. RetryWait is
	// the pause after NotInitialized; CloseGrace is how long the socket
	// stays open after the last mutation so the remote can flush.
	Timeout    time.Duration
	RetryWait  time.Duration
	CloseGrace time.Duration

	log zerolog.Logger
}

// NewSession creates a Session dialing tokens against the given control
// URL, registering sockets in reg for shutdown.
func NewSession(controlURL string, reg *Registry) *Session {
	return &Session{
		ControlURL: controlURL,
		Dial:       DialWebsocket,
		Registry:   reg,
		log:        logging.With("protocol"),
	}
}

// Run opens a sync session for one (token, desired set) pair and blocks
// until the remote converged or the session timeout fired. It never fails
// on protocol trouble (a session that cannot converge in time degrades to
// a logged warning) and only returns an error on context cancellation.
//
// A NotInitialized answer restarts the whole conversation from a fresh
// socket with the pristine original desired set. There is no cap on these
// restarts; the caller's context (and the session timeout) bound them.
func (s *Session) Run(ctx context.Context, token string, desired map[string]string) error {
	url := strings.TrimSuffix(s.ControlURL, "/") + "/" + token

	completed := make(chan struct{})
	go func() {
		for {
			done, retry := s.attempt(ctx, url, desired)
			if done {
				close(completed)
				return
			}
			if !retry {
				// Socket died without a verdict; the timeout owns the
				// session's resolution from here.
				return
			}
			s.log.Info().Dur("wait", s.retryWait()).Msg("container not ready, restarting session")
			select {
			case <-time.After(s.retryWait()):
			case <-ctx.Done():
				return
			}
		}
	}()

	timer := time.NewTimer(s.timeout())
	defer timer.Stop()

	select {
	case <-completed:
		return nil
	case <-timer.C:
		// The attempt goroutine keeps running: a slow listing that lands
		// after this point still applies, the caller just stops waiting.
		s.log.Warn().Dur("timeout", s.timeout()).Msg("sync session timed out before convergence")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// attempt runs one socket conversation. done means the mutations were
// emitted and the session is closing; retry means the container answered
// NotInitialized and the whole session should restart.
func (s *Session) attempt(ctx context.Context, url string, desired map[string]string) (done, retry bool) {
	conn, err := s.Dial(ctx, url)
	if err != nil {
		s.log.Warn().Err(err).Msg("control socket dial failed")
		return false, false
	}
	id := s.Registry.add(conn)

	// Working copy: pruning below must not touch the caller's set, which
	// a NotInitialized restart reuses unmodified.
	working := make(map[string]string, len(desired))
	for k, v := range desired {
		working[k] = v
	}

	state := stateAwaitingReady
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if state != stateClosing {
				s.log.Debug().Err(err).Msg("control socket closed before convergence")
			}
			_ = conn.Close()
			s.Registry.remove(id)
			return false, false
		}

		env, err := UnmarshalEnvelope(frame)
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		switch env.Type {
		case TypeInitialized:
			if state != stateAwaitingReady {
				continue
			}
			if err := s.write(conn, TypeGetFiles, nil); err != nil {
				s.log.Warn().Err(err).Msg("requesting file listing failed")
				_ = conn.Close()
				s.Registry.remove(id)
				return false, false
			}
			state = stateAwaitingListing

		case TypeNotInitialized:
			_ = conn.Close()
			s.Registry.remove(id)
			return false, true

		case TypeFiles:
			if state != stateAwaitingListing {
				continue
			}
			state = stateConverging
			listing, err := UnmarshalFiles(env.Payload)
			if err != nil {
				s.log.Warn().Err(err).Msg("dropping malformed file listing")
				state = stateAwaitingListing
				continue
			}
			s.converge(conn, listing, working)
			state = stateClosing

			// Grace period so the remote can flush before the socket drops.
			time.AfterFunc(s.closeGrace(), func() {
				_ = conn.Close()
				s.Registry.remove(id)
			})
			return true, false

		default:
			// Unknown message types are ignored for forward compatibility.
		}
	}
}

// converge emits the mutations that bring the remote set to the desired
// set: all deletions first, then writes for every path that is missing or
// differs. Byte-identical paths are pruned, not rewritten.
func (s *Session) converge(conn Conn, remote Files, desired map[string]string) {
	deletes, writes := 0, 0

	for _, entry := range remote.Entries {
		if _, ok := desired[entry.Path]; !ok {
			if err := s.write(conn, TypeDeleteFile, MarshalDeleteFile(DeleteFile{Path: entry.Path})); err != nil {
				s.log.Warn().Err(err).Str("path", entry.Path).Msg("delete failed")
			}
			deletes++
		}
	}

	for _, entry := range remote.Entries {
		if want, ok := desired[entry.Path]; ok && want == string(entry.Data) {
			delete(desired, entry.Path)
		}
	}

	paths := make([]string, 0, len(desired))
	for p := range desired {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		msg := SetFile{Path: p, Data: []byte(desired[p])}
		if err := s.write(conn, TypeSetFile, MarshalSetFile(msg)); err != nil {
			s.log.Warn().Err(err).Str("path", p).Msg("write failed")
		}
		writes++
	}

	s.log.Info().Int("deleted", deletes).Int("written", writes).Msg("converged container file set")
}

func (s *Session) write(conn Conn, t MessageType, payload []byte) error {
	frame := MarshalEnvelope(Envelope{Type: t, Payload: payload})
	return conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (s *Session) timeout() time.Duration {
	if s.Timeout != 0 {
		return s.Timeout
	}
	return defaultTimeout
}

func (s *Session) retryWait() time.Duration {
	if s.RetryWait != 0 {
		return s.RetryWait
	}
	return defaultRetryWait
}

func (s *Session) closeGrace() time.Duration {
	if s.CloseGrace != 0 {
		return s.CloseGrace
	}
	return defaultCloseGrace
}
