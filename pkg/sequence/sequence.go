// Package sequence issues monotonically increasing request tokens so a view
// can drop responses that arrive after a newer request was issued.
package sequence

import "sync/atomic"

// Token identifies one issued request.
type Token uint64

// Sequencer is safe for concurrent use. The zero value is ready.
type Sequencer struct {
	latest atomic.Uint64
}

// Next issues a token newer than every previously issued one.
func (s *Sequencer) Next() Token {
	return Token(s.latest.Add(1))
}

// IsLatest reports whether tok is still the most recently issued token.
func (s *Sequencer) IsLatest(tok Token) bool {
	return uint64(tok) == s.latest.Load()
}
