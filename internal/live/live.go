// Package live runs a two-way voice session with the remote model:
// microphone frames go up, synthesized speech comes down and is played
// back to back.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"convertit/internal/audio"
	"convertit/internal/logging"
	"convertit/internal/metrics"
	"convertit/internal/prompt"
)

// State is the lifecycle of the voice session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "idle"
	}
}

// Active reports whether a session is starting or running.
func (s State) Active() bool {
	return s == StateConnecting || s == StateOpen
}

// ErrStartFailed wraps every failure while starting a session.
var ErrStartFailed = errors.New("voice session failed to start")

// InputMIMEType labels uploaded microphone audio.
const InputMIMEType = "audio/pcm;rate=16000"

// ConnectConfig is what the remote session is opened with.
type ConnectConfig struct {
	Instruction string
	Voice       string
}

// Message is one downlink event.
type Message struct {
	Transcript string   // Partial transcription of the model's speech
	Audio      [][]byte // 16-bit PCM chunks in play order
}

// RemoteSession is an open connection to the model.
type RemoteSession interface {
	SendAudio(pcm []byte, mimeType string) error
	Receive() (Message, error)
	Close() error
}

// Remote opens sessions.
type Remote interface {
	Connect(ctx context.Context, cfg ConnectConfig) (RemoteSession, error)
}

// Microphone yields fixed-size frames of float samples.
type Microphone interface {
	ReadFrame() ([]float32, error)
	Close() error
}

// Devices opens local audio devices.
type Devices interface {
	OpenOutput(rate int) (audio.Output, error)
	OpenMicrophone(rate, frameSize int) (Microphone, error)
}

// Options configures a Manager.
type Options struct {
	InputRate  int
	OutputRate int
	FrameSize  int
	Voice      string
}

type session struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
	remote RemoteSession
	mic    Microphone
	player *audio.Player
}

// attach stores a freshly opened resource. It reports false, and the
// caller must release the resource, when the session was already closed.
func (s *session) attach(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

// close releases everything that was opened. It is safe to call twice.
func (s *session) close() {
	s.cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	remote, mic, player := s.remote, s.mic, s.player
	s.mu.Unlock()

	if remote != nil {
		if err := remote.Close(); err != nil {
			s.log.Debug("closing live session", "error", err)
		}
	}
	if mic != nil {
		_ = mic.Close()
	}
	if player != nil {
		_ = player.Close()
	}
}

// Manager owns at most one voice session.
type Manager struct {
	remote  Remote
	devices Devices
	opts    Options

	mu         sync.Mutex
	state      State
	gen        uint64
	current    *session
	transcript []string
	onChange   func(State)
}

// NewManager creates an idle manager.
func NewManager(remote Remote, devices Devices, opts Options) *Manager {
	if opts.InputRate <= 0 {
		opts.InputRate = 16000
	}
	if opts.OutputRate <= 0 {
		opts.OutputRate = 24000
	}
	if opts.FrameSize <= 0 {
		opts.FrameSize = 4096
	}
	if opts.Voice == "" {
		opts.Voice = "Puck"
	}
	return &Manager{remote: remote, devices: devices, opts: opts}
}

// OnChange registers a callback for state changes. It runs without the
// manager lock held.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transcript returns the running transcription of the model's speech.
func (m *Manager) Transcript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.transcript, " ")
}

// setLocked changes state and returns the callback to fire after unlocking.
func (m *Manager) setLocked(s State) func() {
	m.state = s
	fn := m.onChange
	if fn == nil {
		return func() {}
	}
	return func() { fn(s) }
}

// Toggle stops an active session, or starts one for leadName.
func (m *Manager) Toggle(ctx context.Context, leadName string) error {
	if m.State().Active() {
		m.Stop()
		return nil
	}
	return m.Start(ctx, leadName)
}

// Start opens the output, the microphone and the remote session, in that
// order. On any failure everything opened so far is closed and the
// manager returns to idle.
func (m *Manager) Start(ctx context.Context, leadName string) error {
	m.mu.Lock()
	if m.state.Active() {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	gen := m.gen
	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{cancel: cancel, log: logging.With("lead", leadName)}
	m.current = sess
	m.transcript = nil
	notify := m.setLocked(StateConnecting)
	m.mu.Unlock()
	notify()

	stopOnCtx := context.AfterFunc(ctx, cancel)
	defer stopOnCtx()

	fail := func(step string, err error) error {
		sess.close()
		m.mu.Lock()
		if m.gen != gen {
			// Stopped while connecting; Stop reports the state change.
			m.mu.Unlock()
			return nil
		}
		m.current = nil
		notify := m.setLocked(StateIdle)
		m.mu.Unlock()
		notify()
		sess.log.Warn("voice session start failed", "step", step, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrStartFailed, step, err)
	}

	out, err := m.devices.OpenOutput(m.opts.OutputRate)
	if err != nil {
		return fail("output", err)
	}
	if !sess.attach(func() { sess.player = audio.NewPlayer(out, m.opts.OutputRate) }) {
		_ = out.Close()
		return nil
	}

	mic, err := m.devices.OpenMicrophone(m.opts.InputRate, m.opts.FrameSize)
	if err != nil {
		return fail("microphone", err)
	}
	if !sess.attach(func() { sess.mic = mic }) {
		_ = mic.Close()
		return nil
	}

	remote, err := m.remote.Connect(sessCtx, ConnectConfig{
		Instruction: prompt.SalesPersona(leadName),
		Voice:       m.opts.Voice,
	})
	if err != nil {
		return fail("connect", err)
	}
	if !sess.attach(func() { sess.remote = remote }) {
		_ = remote.Close()
		return nil
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		sess.close()
		return nil
	}
	notify = m.setLocked(StateOpen)
	sess.wg.Add(2)
	go m.uplink(sessCtx, gen, sess)
	go m.downlink(sessCtx, gen, sess)
	metrics.LiveSessions.Inc()
	m.mu.Unlock()

	sess.log.Info("voice session open")
	notify()
	return nil
}

// Stop ends the session. Audio already queued keeps playing.
func (m *Manager) Stop() {
	m.mu.Lock()
	sess := m.current
	if sess == nil {
		m.mu.Unlock()
		return
	}
	wasOpen := m.state == StateOpen
	m.gen++
	m.current = nil
	notify := m.setLocked(StateClosed)
	m.mu.Unlock()
	notify()

	sess.close()
	sess.wg.Wait()
	m.finish(wasOpen)
}

// teardown ends the session from inside one of its goroutines.
func (m *Manager) teardown(gen uint64, sess *session, reason error) {
	m.mu.Lock()
	if m.gen != gen || m.current != sess {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.current = nil
	notify := m.setLocked(StateClosed)
	m.mu.Unlock()
	notify()

	sess.log.Warn("voice session ended", "error", reason)
	sess.close()
	m.finish(true)
}

func (m *Manager) finish(wasOpen bool) {
	if wasOpen {
		metrics.LiveSessions.Dec()
	}
	m.mu.Lock()
	var notify func()
	if m.current == nil {
		m.transcript = nil
		notify = m.setLocked(StateIdle)
	}
	m.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (m *Manager) uplink(ctx context.Context, gen uint64, sess *session) {
	defer sess.wg.Done()
	for {
		frame, err := sess.mic.ReadFrame()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			go m.teardown(gen, sess, fmt.Errorf("microphone: %w", err))
			return
		}
		if err := sess.remote.SendAudio(audio.EncodePCM16(frame), InputMIMEType); err != nil {
			if ctx.Err() == nil {
				go m.teardown(gen, sess, fmt.Errorf("send: %w", err))
			}
			return
		}
		metrics.LiveFrames.WithLabelValues("up").Inc()
	}
}

func (m *Manager) downlink(ctx context.Context, gen uint64, sess *session) {
	defer sess.wg.Done()
	for {
		msg, err := sess.remote.Receive()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			go m.teardown(gen, sess, fmt.Errorf("receive: %w", err))
			return
		}

		if msg.Transcript != "" {
			m.mu.Lock()
			if m.gen == gen {
				m.transcript = append(m.transcript, msg.Transcript)
			}
			m.mu.Unlock()
		}
		for _, chunk := range msg.Audio {
			if _, err := sess.player.EnqueuePCM(chunk); err != nil {
				sess.log.Debug("dropping audio chunk", "error", err)
				continue
			}
			metrics.LiveFrames.WithLabelValues("down").Inc()
		}
	}
}
