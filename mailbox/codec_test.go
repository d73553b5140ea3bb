// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package mailbox

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/internal/compression"
)

type point struct {
	X int64
	Y int64
}

func decodeOne(t *testing.T, codec *Codec, frame []byte) (*Frame, *Message) {
	t.Helper()
	decoder := codec.NewDecoder()
	decoder.Feed(frame)
	f, err := decoder.Next()
	require.NoError(t, err)
	msg, err := codec.Decode(f)
	require.NoError(t, err)
	return f, msg
}

func TestCodec(t *testing.T) {
	t.Run("With message round trip", func(t *testing.T) {
		codec, err := NewCodec()
		require.NoError(t, err)

		msg := NewMessage("echo", "a1", "b2", []any{"hello", int64(3), []byte{1, 2}}, map[string]any{"k": "v"})
		msg.Ack = "7"
		frame, err := codec.Encode(msg)
		require.NoError(t, err)
		assert.Equal(t, MarkerPlain, frame[0])

		_, decoded := decodeOne(t, codec, frame)
		assert.Equal(t, "echo", decoded.Command)
		assert.Equal(t, "a1", decoded.Sender)
		assert.Equal(t, "b2", decoded.Receiver)
		assert.Equal(t, "7", decoded.Ack)
		assert.Equal(t, []any{"hello", int64(3), []byte{1, 2}}, decoded.Args)
		assert.Equal(t, map[string]any{"k": "v"}, decoded.Kwargs)
	})
	t.Run("With missing args normalized", func(t *testing.T) {
		codec, err := NewCodec()
		require.NoError(t, err)
		frame, err := codec.Encode(&Message{Command: "ping"})
		require.NoError(t, err)
		_, decoded := decodeOne(t, codec, frame)
		assert.NotNil(t, decoded.Args)
		assert.NotNil(t, decoded.Kwargs)
		assert.Empty(t, decoded.Args)
	})
	t.Run("With compressed payloads", func(t *testing.T) {
		for algorithm, marker := range map[string]byte{compression.Zstd: MarkerZstd, compression.Brotli: MarkerBrotli} {
			codec, err := NewCodec(WithCompression(algorithm, 1024))
			require.NoError(t, err)

			small, err := codec.Encode(NewMessage("echo", "", "", []any{"tiny"}, nil))
			require.NoError(t, err)
			assert.Equal(t, MarkerPlain, small[0])

			big := bytes.Repeat([]byte("gopulse"), 10_000)
			frame, err := codec.Encode(NewMessage("echo", "", "", []any{big}, nil))
			require.NoError(t, err)
			assert.Equal(t, marker, frame[0], algorithm)
			assert.Less(t, len(frame), len(big))

			plain, err := NewCodec()
			require.NoError(t, err)
			f, decoded := decodeOne(t, plain, frame)
			assert.Equal(t, marker, f.Marker)
			assert.Equal(t, big, decoded.Args[0])
		}
	})
	t.Run("With registered type", func(t *testing.T) {
		codec, err := NewCodec(WithType(40001, point{}))
		require.NoError(t, err)
		frame, err := codec.Encode(NewMessage("move", "", "", []any{point{X: 1, Y: 2}}, nil))
		require.NoError(t, err)
		_, decoded := decodeOne(t, codec, frame)
		assert.Equal(t, point{X: 1, Y: 2}, decoded.Args[0])
	})
	t.Run("With unknown compression", func(t *testing.T) {
		_, err := NewCodec(WithCompression("lz4", 0))
		assert.ErrorIs(t, err, compression.ErrUnknownAlgorithm)
	})
	t.Run("With payload above the frame size", func(t *testing.T) {
		codec, err := NewCodec(WithMaxFrameSize(16))
		require.NoError(t, err)
		_, err = codec.Encode(NewMessage("echo", "", "", []any{bytes.Repeat([]byte("x"), 64)}, nil))
		assert.ErrorIs(t, err, gerrors.ErrFrameTooLarge)
	})
	t.Run("With corrupted payload", func(t *testing.T) {
		codec, err := NewCodec()
		require.NoError(t, err)
		_, err = codec.Decode(&Frame{Marker: MarkerPlain, Payload: []byte{0xff, 0x00}})
		assert.ErrorIs(t, err, gerrors.ErrMalformedFrame)
	})
}

func TestReplies(t *testing.T) {
	req := NewMessage("echo", "a", "b", nil, nil)
	req.Ack = "1"

	callback := NewCallback(req, "pong")
	assert.True(t, callback.IsReply())
	assert.Equal(t, "b", callback.Sender)
	assert.Equal(t, "a", callback.Receiver)
	value, err := callback.Outcome("echo")
	require.NoError(t, err)
	assert.Equal(t, "pong", value)

	errback := NewErrback(req, gerrors.NewErrCommandNotFound("echo"))
	_, err = errback.Outcome("echo")
	require.Error(t, err)
	assert.ErrorIs(t, err, gerrors.ErrCommandNotFound)
	var commandErr *gerrors.CommandError
	require.True(t, errors.As(err, &commandErr))
	assert.Equal(t, "echo", commandErr.Command())

	_, err = req.Outcome("echo")
	assert.ErrorIs(t, err, gerrors.ErrMalformedFrame)
}
