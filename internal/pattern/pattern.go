// Package pattern implements the Pattern Source of spec §4.C: a thin
// wrapper unifying constant byte patterns and PRNG streams behind one
// "fill N bytes" contract.
package pattern

import (
	"wipeengine/internal/prng"
	"wipeengine/internal/wipe"
)

// Source fills buffers from either a constant pattern or a borrowed PRNG
// stream. Cheap to construct; a random Source does not own the PRNG state
// it wraps (the worker does).
type Source struct {
	pattern wipe.Pattern
	stream  prng.Stream
}

// NewConstant builds a Source that repeats pattern's bytes.
func NewConstant(p wipe.Pattern) *Source {
	if p.IsRandom() {
		panic("pattern: NewConstant called with a random pattern")
	}
	return &Source{pattern: p}
}

// NewRandom builds a Source that delegates to stream, which the caller
// (the worker) continues to own.
func NewRandom(stream prng.Stream) *Source {
	return &Source{pattern: wipe.Random(), stream: stream}
}

// Fill writes exactly len(buf) bytes: buf[i] = pattern[i mod N] for a
// constant pattern, or the next len(buf) PRNG bytes for a random one.
func (s *Source) Fill(buf []byte) {
	if s.pattern.IsRandom() {
		s.stream.Fill(buf)
		return
	}

	pat := s.pattern.Bytes()
	n := len(pat)
	for i := range buf {
		buf[i] = pat[i%n]
	}
}

// IsRandom reports whether this Source is backed by a PRNG stream.
func (s *Source) IsRandom() bool { return s.pattern.IsRandom() }
