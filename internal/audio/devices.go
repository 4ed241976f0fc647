package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"
)

// ErrDeviceUnavailable is returned when no capture or playback device can be opened.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// captureBuffer collects PCM16 bytes from the capture callback and hands
// them out as fixed-size frames.
type captureBuffer struct {
	mu         sync.Mutex
	cond       *sync.Cond
	buf        []byte
	frameBytes int
	closed     bool
}

func newCaptureBuffer(frameSize int) *captureBuffer {
	b := &captureBuffer{frameBytes: frameSize * BytesPerSample}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *captureBuffer) write(p []byte) {
	b.mu.Lock()
	if !b.closed {
		b.buf = append(b.buf, p...)
	}
	b.mu.Unlock()
	b.cond.Signal()
}

// next blocks for a full frame. After close it returns io.EOF.
func (b *captureBuffer) next() ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.buf) < b.frameBytes && !b.closed {
		b.cond.Wait()
	}
	if b.closed {
		return nil, io.EOF
	}
	frame := DecodePCM16(b.buf[:b.frameBytes])
	b.buf = b.buf[b.frameBytes:]
	return frame, nil
}

func (b *captureBuffer) close() {
	b.mu.Lock()
	b.closed = true
	b.buf = nil
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Microphone captures mono 16-bit samples from the default input device.
type Microphone struct {
	ctx       *malgo.AllocatedContext
	device    *malgo.Device
	frames    *captureBuffer
	closeOnce sync.Once
}

// OpenMicrophone starts capturing at rate, delivering frameSize samples per frame.
func OpenMicrophone(rate, frameSize int) (*Microphone, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init capture context: %v", ErrDeviceUnavailable, err)
	}

	frames := newCaptureBuffer(frameSize)
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(rate)
	cfg.PeriodSizeInMilliseconds = 20

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, in []byte, _ uint32) { frames.write(in) },
	})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("%w: open capture device: %v", ErrDeviceUnavailable, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("%w: start capture: %v", ErrDeviceUnavailable, err)
	}
	return &Microphone{ctx: ctx, device: device, frames: frames}, nil
}

// ReadFrame blocks until a full frame is captured.
func (m *Microphone) ReadFrame() ([]float32, error) {
	return m.frames.next()
}

// Close stops capturing. Pending ReadFrame calls return io.EOF.
func (m *Microphone) Close() error {
	m.closeOnce.Do(func() {
		m.frames.close()
		m.device.Stop()
		m.device.Uninit()
		m.ctx.Uninit()
		m.ctx.Free()
	})
	return nil
}

var playback struct {
	once sync.Once
	ctx  *oto.Context
	rate int
	err  error
}

// playbackContext returns the process-wide output context. Only one can
// exist, so the first caller fixes the sample rate.
func playbackContext(rate int) (*oto.Context, error) {
	playback.once.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   100 * time.Millisecond,
		})
		if err != nil {
			playback.err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
			return
		}
		<-ready
		playback.ctx, playback.rate = ctx, rate
	})
	if playback.err != nil {
		return nil, playback.err
	}
	if playback.rate != rate {
		return nil, fmt.Errorf("%w: output already open at %d Hz, not %d Hz", ErrDeviceUnavailable, playback.rate, rate)
	}
	return playback.ctx, nil
}

// timeline is the byte stream the device pulls from. Its clock is the
// amount of audio already handed out, so a chunk scheduled past the end of
// what is buffered is preceded by silence.
type timeline struct {
	mu      sync.Mutex
	rate    int
	origin  time.Time
	played  int64
	buf     []byte
	closed  bool
	drained chan struct{}
}

func newTimeline(rate int, origin time.Time) *timeline {
	return &timeline{rate: rate, origin: origin, drained: make(chan struct{})}
}

func (t *timeline) now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.origin.Add(Duration(int(t.played/BytesPerSample), t.rate))
}

func (t *timeline) offset(at time.Time) int64 {
	samples := int64(at.Sub(t.origin)) * int64(t.rate) / int64(time.Second)
	return samples * BytesPerSample
}

func (t *timeline) schedule(pcm []byte, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if gap := t.offset(at) - (t.played + int64(len(t.buf))); gap > 0 {
		t.buf = append(t.buf, make([]byte, gap)...)
	}
	t.buf = append(t.buf, pcm...)
	return nil
}

// Read serves buffered audio, or silence while nothing is scheduled. Once
// closed and empty it reports io.EOF.
func (t *timeline) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		if t.closed {
			t.markDrained()
			return 0, io.EOF
		}
		n := len(p) &^ 1
		clear(p[:n])
		t.played += int64(n)
		return n, nil
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	t.played += int64(n)
	return n, nil
}

// close stops scheduling. With discard set, pending audio is dropped and
// the timeline counts as drained at once.
func (t *timeline) close(discard bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if discard {
		t.buf = nil
		t.markDrained()
	}
}

func (t *timeline) markDrained() {
	select {
	case <-t.drained:
	default:
		close(t.drained)
	}
}

// Stream is a scheduled playback Output on the default device.
type Stream struct {
	line   *timeline
	player *oto.Player
	done   chan struct{}
	once   sync.Once
}

// OpenStream starts a 16-bit mono output at rate.
func OpenStream(rate int) (*Stream, error) {
	ctx, err := playbackContext(rate)
	if err != nil {
		return nil, err
	}
	line := newTimeline(rate, time.Now())
	s := &Stream{
		line:   line,
		player: ctx.NewPlayer(line),
		done:   make(chan struct{}),
	}
	s.player.Play()
	return s, nil
}

// Now implements Output.
func (s *Stream) Now() time.Time {
	return s.line.now()
}

// PlayAt implements Output. Chunks are never dropped while the stream is open.
func (s *Stream) PlayAt(samples []float32, at time.Time) error {
	return s.line.schedule(EncodePCM16(samples), at)
}

// Close stops accepting chunks. Chunks already scheduled still play.
func (s *Stream) Close() error {
	s.finish(false)
	return nil
}

// Stop discards pending audio and silences the device.
func (s *Stream) Stop() {
	s.line.close(true)
	s.player.Pause()
	s.finish(true)
}

func (s *Stream) finish(discard bool) {
	s.once.Do(func() {
		s.line.close(discard)
		go func() {
			<-s.line.drained
			for s.player.IsPlaying() {
				time.Sleep(10 * time.Millisecond)
			}
			s.player.Close()
			close(s.done)
		}()
	})
}

// Done is closed once the stream has played out after Close, or right
// after Stop.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Speaker plays one-shot clips.
type Speaker struct {
	Rate int
}

// Play blocks until pcm has been played or ctx ends.
func (s Speaker) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	rate := s.Rate
	if rate <= 0 {
		rate = 24000
	}
	out, err := OpenStream(rate)
	if err != nil {
		return err
	}
	if err := out.line.schedule(pcm, out.Now()); err != nil {
		return err
	}
	_ = out.Close()

	select {
	case <-out.Done():
		return nil
	case <-ctx.Done():
		out.Stop()
		return ctx.Err()
	}
}
