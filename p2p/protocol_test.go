//
// protocol_test.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

const numFrames = 100000

func writer(c *Conn) {
	if err := c.SendByte(42); err != nil {
		fmt.Printf("SendByte: %v\n", err)
	}
	for i := 0; i < numFrames; i++ {
		err := c.SendFrame(Frame{
			MsgID: uint16(i),
			Value: uint32(i * 7),
		})
		if err != nil {
			fmt.Printf("SendFrame: %v\n", err)
		}
	}
	if err := c.Flush(); err != nil {
		fmt.Printf("Flush: %v\n", err)
	}
}

func TestProtocol(t *testing.T) {
	c0, c1 := Pipe()

	go writer(c0)

	b, err := c1.ReceiveByte()
	if err != nil {
		t.Fatalf("ReceiveByte: %v", err)
	}
	if b != 42 {
		t.Errorf("ReceiveByte: got %v, expected 42", b)
	}
	for i := 0; i < numFrames; i++ {
		f, err := c1.ReceiveFrame()
		if err != nil {
			t.Fatalf("ReceiveFrame: %v", err)
		}
		if f.MsgID != uint16(i) || f.Value != uint32(i*7) {
			t.Fatalf("ReceiveFrame %d: got %v", i, f)
		}
	}
	expected := uint64(1 + numFrames*FrameSize)
	if got := c1.Stats.Recvd.Load(); got != expected {
		t.Errorf("Recvd: got %v, expected %v", got, expected)
	}
	if got := c0.Stats.Sent.Load(); got != expected {
		t.Errorf("Sent: got %v, expected %v", got, expected)
	}
}

func TestProtocolPartialFrame(t *testing.T) {
	c0, c1 := Pipe()

	go func() {
		for i := 0; i < 3; i++ {
			c0.SendByte(byte(i))
		}
		c0.Close()
	}()

	_, err := c1.ReceiveFrame()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReceiveFrame: got %v, expected %v", err, io.ErrUnexpectedEOF)
	}
}

func TestProtocolEOF(t *testing.T) {
	c0, c1 := Pipe()

	go func() {
		c0.SendFrame(Frame{MsgID: 1, Value: 2})
		c0.Close()
	}()

	f, err := c1.ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame: %v", err)
	}
	if f.MsgID != 1 || f.Value != 2 {
		t.Errorf("ReceiveFrame: got %v", f)
	}
	_, err = c1.ReceiveFrame()
	if !errors.Is(err, io.EOF) {
		t.Errorf("ReceiveFrame: got %v, expected %v", err, io.EOF)
	}
}

func TestIOStats(t *testing.T) {
	a := NewIOStats()
	b := NewIOStats()
	a.Sent.Store(1)
	a.Recvd.Store(2)
	b.Sent.Store(10)
	b.Flushed.Store(3)

	sum := a.Add(b)
	if sum.Sent.Load() != 11 || sum.Recvd.Load() != 2 ||
		sum.Flushed.Load() != 3 {
		t.Errorf("Add: got %v/%v/%v", sum.Sent.Load(), sum.Recvd.Load(),
			sum.Flushed.Load())
	}
	if sum.Sum() != 13 {
		t.Errorf("Sum: got %v, expected 13", sum.Sum())
	}
}
