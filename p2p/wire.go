//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"encoding/binary"
	"fmt"
)

// FrameSize is the size of a steady-state wire frame: a big-endian
// uint16 message ID followed by a big-endian uint32 share. Frames are
// sent back-to-back without delimiters.
const FrameSize = 6

// Handshake values. Besides these sentinels, the handshake byte
// carries the sender's party ID in [0, Parties).
const (
	// HandshakeEphemeral identifies a connection that does not
	// register as a committee peer.
	HandshakeEphemeral int8 = -1

	// HandshakeEndSession signals the end of the session.
	HandshakeEndSession int8 = -2
)

var bo = binary.BigEndian

// Frame is one share of one exchange round.
type Frame struct {
	MsgID uint16
	Value uint32
}

func (f Frame) String() string {
	return fmt.Sprintf("#%d=%d", f.MsgID, f.Value)
}

// Marshal encodes the frame into buf in wire byte order. The buffer
// must have room for FrameSize bytes.
func (f Frame) Marshal(buf []byte) {
	bo.PutUint16(buf[0:], f.MsgID)
	bo.PutUint32(buf[2:], f.Value)
}

// UnmarshalFrame decodes a frame from the FrameSize first bytes of
// buf.
func UnmarshalFrame(buf []byte) Frame {
	return Frame{
		MsgID: bo.Uint16(buf[0:]),
		Value: bo.Uint32(buf[2:]),
	}
}

// handshake sends our handshake value and returns the peer's value.
func handshake(conn *Conn, value int8) (int8, error) {
	if err := conn.SendByte(byte(value)); err != nil {
		return 0, err
	}
	if err := conn.Flush(); err != nil {
		return 0, err
	}
	v, err := conn.ReceiveByte()
	if err != nil {
		return 0, err
	}
	return int8(v), nil
}
