//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package bgw

import (
	"github.com/markkurossi/tallier/field"
)

// Message ID spans of the primitives. Input, Multiply, Resolve,
// RandomNumber, and RandomBit use one message ID.

// MultiplySpan is the message ID span of the single-round
// primitives.
const MultiplySpan = 1

// FanInORSpan returns the message ID span of FanInOR for n bits.
func FanInORSpan(n int) int {
	if n < 2 {
		return 1
	}
	return n / 2
}

// PrefixORSpan returns the message ID span of PrefixOR for n bits.
func PrefixORSpan(n int) int {
	if n < 1 {
		return 1
	}
	lam := field.CeilSqrt(n)
	return max(n, lam*FanInORSpan(lam))
}

// LessBitwiseSpan returns the message ID span of LessBitwise for
// n-bit vectors.
func LessBitwiseSpan(n int) int {
	return max(n, PrefixORSpan(n))
}

// RandomNumberBitsSpan returns the message ID span of
// RandomNumberBits.
func (s *Service) RandomNumberBitsSpan() int {
	n := s.f.BitLen()
	return max(n, LessBitwiseSpan(n))
}

// IsOddSpan returns the message ID span of IsOdd.
func (s *Service) IsOddSpan() int {
	return s.RandomNumberBitsSpan()
}

// LessSpan returns the message ID span of Less.
func (s *Service) LessSpan() int {
	return 3 * s.IsOddSpan()
}
