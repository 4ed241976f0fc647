// Package audio converts between float samples and 16-bit PCM and plays
// audio through local devices.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// BytesPerSample is the width of one 16-bit mono sample.
const BytesPerSample = 2

// EncodePCM16 converts samples in [-1, 1] to little-endian signed 16-bit
// PCM. Out-of-range samples are clamped; 1.0 saturates at 32767.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(toInt16(s)))
	}
	return out
}

func toInt16(s float32) int16 {
	if s != s { // NaN
		return 0
	}
	v := float64(s) * 32768
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// DecodePCM16 converts little-endian signed 16-bit PCM to samples in
// [-1, 1). A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	n := len(data) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Duration returns the play time of n samples at rate.
func Duration(n, rate int) time.Duration {
	if rate <= 0 || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// WAV wraps 16-bit mono PCM in a RIFF/WAVE header.
func WAV(pcm []byte, rate int) []byte {
	const headerSize = 44
	out := make([]byte, headerSize+len(pcm))
	le := binary.LittleEndian

	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(36+len(pcm)))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], 1) // PCM
	le.PutUint16(out[22:], 1) // mono
	le.PutUint32(out[24:], uint32(rate))
	le.PutUint32(out[28:], uint32(rate*BytesPerSample))
	le.PutUint16(out[32:], BytesPerSample)
	le.PutUint16(out[34:], 16)
	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(len(pcm)))
	copy(out[headerSize:], pcm)
	return out
}
