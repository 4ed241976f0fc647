package audio

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when writing to a closed output.
var ErrClosed = errors.New("audio output closed")

// Output is a sink that can play a chunk at a given wall time.
type Output interface {
	Now() time.Time
	PlayAt(samples []float32, at time.Time) error
	Close() error
}

// Player queues decoded chunks on an Output back to back.
type Player struct {
	mu     sync.Mutex
	out    Output
	rate   int
	cursor Cursor
}

// NewPlayer creates a player for out at rate samples per second.
func NewPlayer(out Output, rate int) *Player {
	return &Player{out: out, rate: rate}
}

// Enqueue schedules samples at the next free slot and returns its start.
// The cursor only advances when the output accepts the chunk.
func (p *Player) Enqueue(samples []float32) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.cursor.Start(p.out.Now())
	if len(samples) == 0 {
		return start, nil
	}
	if err := p.out.PlayAt(samples, start); err != nil {
		return time.Time{}, err
	}
	p.cursor.Commit(start, Duration(len(samples), p.rate))
	return start, nil
}

// EnqueuePCM decodes 16-bit PCM and enqueues it.
func (p *Player) EnqueuePCM(pcm []byte) (time.Time, error) {
	return p.Enqueue(DecodePCM16(pcm))
}

// Next returns when the last queued chunk ends.
func (p *Player) Next() time.Time {
	return p.cursor.Next()
}

// Close closes the output. Already queued audio is left to finish.
func (p *Player) Close() error {
	return p.out.Close()
}
