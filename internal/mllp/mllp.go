// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mllp implements the Minimal Lower Layer Protocol framing
// used to carry HL7 v2 messages over TCP. A frame is
//
//	<VT> segment1 \r segment2 \r ... segmentN \r <FS><CR>
//
// with VT=0x0b, FS=0x1c, CR=0x0d.
package mllp

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	startOfBlock   = 0x0b
	endOfBlock     = 0x1c
	carriageReturn = 0x0d
)

// Encode frames the given HL7 segments into a single MLLP message.
func Encode(segments []string) []byte {
	var b bytes.Buffer
	b.WriteByte(startOfBlock)
	b.WriteString(strings.Join(segments, "\r"))
	b.WriteByte(carriageReturn)
	b.WriteByte(endOfBlock)
	b.WriteByte(carriageReturn)
	return b.Bytes()
}

// Decode extracts all complete messages from buffer and returns them
// together with the unconsumed tail. Returned payloads keep their
// trailing \r; Segments strips it. The buffer must start with a VT at
// the consume cursor, and a FS must be followed by exactly one CR;
// anything else is a framing error.
func Decode(buffer []byte) (messages [][]byte, rest []byte, err error) {
	consumed := 0
	expect := byte(startOfBlock)
	expecting := true
	for i := 0; i < len(buffer); i++ {
		if expecting {
			if buffer[i] != expect {
				return nil, nil, fmt.Errorf("bad MLLP encoding: want %#02x, found %#02x", expect, buffer[i])
			}
			if expect == startOfBlock {
				expecting = false
				consumed = i
			} else {
				messages = append(messages, buffer[consumed+1:i-1])
				expect = startOfBlock
				expecting = true
				consumed = i + 1
			}
		} else if buffer[i] == endOfBlock {
			expect = carriageReturn
			expecting = true
		}
	}
	return messages, buffer[consumed:], nil
}

// Segments splits a decoded payload into its HL7 segments, dropping
// the trailing \r the frame carries after the last segment.
func Segments(payload []byte) []string {
	s := string(payload)
	if len(s) > 0 {
		s = s[:len(s)-1]
	}
	return strings.Split(s, "\r")
}

// Decoder accumulates socket reads and hands out decoded messages one
// at a time, so the listener can process and acknowledge each message
// before touching the next.
type Decoder struct {
	buf   []byte
	queue [][]byte
}

// Write appends p to the internal buffer and decodes every complete
// message out of it. On a framing error the buffered bytes are
// dropped so the decoder can resynchronize on the next frame's VT.
func (d *Decoder) Write(p []byte) error {
	d.buf = append(d.buf, p...)
	messages, rest, err := Decode(d.buf)
	if err != nil {
		d.buf = d.buf[:0]
		return err
	}
	for _, m := range messages {
		d.queue = append(d.queue, append([]byte(nil), m...))
	}
	d.buf = append(d.buf[:0], rest...)
	return nil
}

// Next pops the oldest decoded message, if any.
func (d *Decoder) Next() ([]byte, bool) {
	if len(d.queue) == 0 {
		return nil, false
	}
	m := d.queue[0]
	d.queue = d.queue[1:]
	return m, true
}

// Pending reports how many decoded messages are waiting.
func (d *Decoder) Pending() int {
	return len(d.queue)
}
