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
	"fmt"
	"strconv"

	gerrors "github.com/tochemey/gopulse/errors"
)

// Frame markers. The marker tells how the payload is encoded.
const (
	// MarkerPlain marks an uncompressed payload
	MarkerPlain byte = '*'
	// MarkerZstd marks a zstd compressed payload
	MarkerZstd byte = '#'
	// MarkerBrotli marks a brotli compressed payload
	MarkerBrotli byte = '&'
)

// maxLengthDigits bounds the decimal length of a frame header.
const maxLengthDigits = 19

var crlf = []byte("\r\n")

// Frame is a decoded frame: the payload and the marker it was sent with.
type Frame struct {
	Marker  byte
	Payload []byte
}

// AppendFrame appends the frame <marker><len(payload)>\r\n<payload> to dst.
func AppendFrame(dst []byte, marker byte, payload []byte) []byte {
	dst = append(dst, marker)
	dst = strconv.AppendInt(dst, int64(len(payload)), 10)
	dst = append(dst, crlf...)
	return append(dst, payload...)
}

// EncodeFrame returns the frame of payload.
func EncodeFrame(marker byte, payload []byte) []byte {
	return AppendFrame(make([]byte, 0, len(payload)+maxLengthDigits+3), marker, payload)
}

func validMarker(marker byte) bool {
	switch marker {
	case MarkerPlain, MarkerZstd, MarkerBrotli:
		return true
	default:
		return false
	}
}

// Decoder splits a byte stream into frames. Bytes of an incomplete frame
// stay buffered until the rest arrives. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	buffer []byte
	// start of the bytes not decoded yet
	offset  int
	maxSize int
}

// NewDecoder creates a Decoder rejecting payloads larger than maxSize.
// A non-positive maxSize disables the bound.
func NewDecoder(maxSize int) *Decoder {
	return &Decoder{maxSize: maxSize}
}

// Feed appends data to the buffered stream.
func (d *Decoder) Feed(data []byte) {
	if d.offset > 0 {
		remaining := copy(d.buffer, d.buffer[d.offset:])
		d.buffer = d.buffer[:remaining]
		d.offset = 0
	}
	d.buffer = append(d.buffer, data...)
}

// Buffered returns the number of bytes waiting to be decoded
func (d *Decoder) Buffered() int {
	return len(d.buffer) - d.offset
}

// Next returns the next complete frame. It returns ErrIncompleteFrame when
// more bytes are needed, in which case nothing is consumed, and
// ErrMalformedFrame or ErrFrameTooLarge when the stream cannot be decoded.
func (d *Decoder) Next() (*Frame, error) {
	frame, consumed, err := ParseFrame(d.buffer[d.offset:], d.maxSize)
	if err != nil {
		return nil, err
	}

	d.offset += consumed
	if d.offset == len(d.buffer) {
		d.offset = 0
		d.buffer = d.buffer[:0]
		if cap(d.buffer) > 1<<20 {
			d.buffer = nil
		}
	}
	return frame, nil
}

// ParseFrame decodes the frame at the start of data and returns it with the
// number of bytes it spans. The returned payload does not alias data.
func ParseFrame(data []byte, maxSize int) (*Frame, int, error) {
	if len(data) == 0 {
		return nil, 0, gerrors.ErrIncompleteFrame
	}

	marker := data[0]
	if !validMarker(marker) {
		return nil, 0, fmt.Errorf("%w: unknown marker %q", gerrors.ErrMalformedFrame, marker)
	}

	end := bytes.Index(data, crlf)
	if end < 0 {
		// the header may still be arriving
		header := data[1:]
		if len(header) > 0 && header[len(header)-1] == '\r' {
			header = header[:len(header)-1]
		}
		if len(header) > maxLengthDigits || !isDigits(header) {
			return nil, 0, fmt.Errorf("%w: invalid length header", gerrors.ErrMalformedFrame)
		}
		return nil, 0, gerrors.ErrIncompleteFrame
	}

	digits := data[1:end]
	if len(digits) == 0 || len(digits) > maxLengthDigits || !isDigits(digits) {
		return nil, 0, fmt.Errorf("%w: invalid length header", gerrors.ErrMalformedFrame)
	}

	length, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", gerrors.ErrMalformedFrame, err)
	}
	if maxSize > 0 && length > int64(maxSize) {
		return nil, 0, fmt.Errorf("%w: %d bytes", gerrors.ErrFrameTooLarge, length)
	}

	start := end + len(crlf)
	if length > int64(len(data)-start) {
		return nil, 0, gerrors.ErrIncompleteFrame
	}

	total := start + int(length)
	payload := make([]byte, length)
	copy(payload, data[start:total])
	return &Frame{Marker: marker, Payload: payload}, total, nil
}

func isDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
