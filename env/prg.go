//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package env

import (
	"sync"

	"golang.org/x/crypto/chacha20"
)

// PRG implements a deterministic pseudo-random generator from the
// ChaCha20 keystream. It is safe for concurrent use.
type PRG struct {
	m      sync.Mutex
	cipher *chacha20.Cipher
}

// NewPRG creates a new PRG from the 32-byte seed. The nonce is zero
// so the seed must be unique per generator.
func NewPRG(seed [32]byte) *PRG {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		panic(err)
	}
	return &PRG{
		cipher: c,
	}
}

// Read fills p with keystream bytes.
func (prg *PRG) Read(p []byte) (int, error) {
	prg.m.Lock()
	defer prg.m.Unlock()

	for i := range p {
		p[i] = 0
	}
	prg.cipher.XORKeyStream(p, p)
	return len(p), nil
}
