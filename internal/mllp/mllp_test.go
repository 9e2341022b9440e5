// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package mllp_test

import (
	"testing"

	"github.com/mflvn/AKI-Detection-System/internal/mllp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSegments = []string{
	"MSH|^~\\&|SIMULATION|SOUTH RIVERSIDE|||20240102135300||ADT^A01|||2.5",
	"PID|1||497030||ROSCOE DOHERTY||19870515|M",
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame := mllp.Encode(testSegments)

	messages, rest, err := mllp.Decode(frame)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Empty(t, rest)
	assert.Equal(t, testSegments, mllp.Segments(messages[0]))
}

func TestEncodeFraming(t *testing.T) {
	frame := mllp.Encode([]string{"MSA|AA"})

	assert.Equal(t, byte(0x0b), frame[0])
	assert.Equal(t, byte(0x1c), frame[len(frame)-2])
	assert.Equal(t, byte(0x0d), frame[len(frame)-1])
	assert.Equal(t, "MSA|AA\r", string(frame[1:len(frame)-2]))
}

func TestDecodeByteByByte(t *testing.T) {
	frame := mllp.Encode(testSegments)

	var dec mllp.Decoder
	for i, b := range frame {
		require.NoError(t, dec.Write([]byte{b}))
		if i < len(frame)-1 {
			require.Equal(t, 0, dec.Pending(), "no message expected before byte %d", i)
		}
	}

	require.Equal(t, 1, dec.Pending())
	payload, ok := dec.Next()
	require.True(t, ok)
	assert.Equal(t, testSegments, mllp.Segments(payload))
}

func TestDecodeMultipleMessages(t *testing.T) {
	first := mllp.Encode([]string{"MSH|1"})
	second := mllp.Encode([]string{"MSH|2"})
	partial := mllp.Encode([]string{"MSH|3"})[:3]

	buffer := append(append(append([]byte{}, first...), second...), partial...)
	messages, rest, err := mllp.Decode(buffer)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, []string{"MSH|1"}, mllp.Segments(messages[0]))
	assert.Equal(t, []string{"MSH|2"}, mllp.Segments(messages[1]))
	assert.Equal(t, partial, rest)
}

func TestDecodeRejectsMissingStartOfBlock(t *testing.T) {
	_, _, err := mllp.Decode([]byte("MSH|1\r"))
	assert.Error(t, err)
}

func TestDecodeRejectsMissingCarriageReturn(t *testing.T) {
	frame := mllp.Encode([]string{"MSH|1"})
	frame[len(frame)-1] = 'X' // FS must be followed by exactly one CR

	_, _, err := mllp.Decode(frame)
	assert.Error(t, err)
}

func TestDecoderNoDuplicatesAcrossChunks(t *testing.T) {
	frame := mllp.Encode(testSegments)
	split := len(frame) / 2

	var dec mllp.Decoder
	require.NoError(t, dec.Write(frame[:split]))
	require.Equal(t, 0, dec.Pending())
	require.NoError(t, dec.Write(frame[split:]))
	require.Equal(t, 1, dec.Pending())

	_, ok := dec.Next()
	require.True(t, ok)
	_, ok = dec.Next()
	assert.False(t, ok)
}

func TestDecoderResynchronizesAfterFramingError(t *testing.T) {
	var dec mllp.Decoder
	require.Error(t, dec.Write([]byte("garbage")))

	require.NoError(t, dec.Write(mllp.Encode([]string{"MSH|1"})))
	require.Equal(t, 1, dec.Pending())
}
