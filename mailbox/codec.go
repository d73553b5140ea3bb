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
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/internal/compression"
)

// DefaultMaxFrameSize bounds a frame payload when no size is configured.
const DefaultMaxFrameSize = 256 << 20

var (
	encOpts = cbor.EncOptions{
		Sort:        cbor.SortNone,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeUnixDynamic,
	}
	decOpts = cbor.DecOptions{
		MaxNestedLevels:  64,
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 24,
		IndefLength:      cbor.IndefLengthForbidden,
		UTF8:             cbor.UTF8DecodeInvalid,
		IntDec:           cbor.IntDecConvertSigned,
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
	}
)

// Codec turns messages into frames and back. It is safe for concurrent use.
type Codec struct {
	encMode    cbor.EncMode
	decMode    cbor.DecMode
	compressor compression.Compressor
	threshold  int
	maxSize    int
	zstd       compression.Compressor
	brotli     compression.Compressor
}

// CodecOption configures a Codec
type CodecOption func(*codecConfig)

type codecConfig struct {
	tags        cbor.TagSet
	compression string
	threshold   int
	maxSize     int
	err         error
}

// WithType registers a Go type under a CBOR tag so it survives a round
// trip through an untyped argument. value is a zero value of the type.
func WithType(tag uint64, value any) CodecOption {
	return func(c *codecConfig) {
		if c.err != nil {
			return
		}
		opts := cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired}
		c.err = c.tags.Add(opts, reflect.TypeOf(value), tag)
	}
}

// WithCompression compresses payloads of at least threshold bytes with the
// named algorithm.
func WithCompression(algorithm string, threshold int) CodecOption {
	return func(c *codecConfig) {
		c.compression = algorithm
		c.threshold = threshold
	}
}

// WithMaxFrameSize bounds the payload size accepted by the codec.
func WithMaxFrameSize(size int) CodecOption {
	return func(c *codecConfig) {
		c.maxSize = size
	}
}

// NewCodec creates a Codec
func NewCodec(opts ...CodecOption) (*Codec, error) {
	config := &codecConfig{
		tags:        cbor.NewTagSet(),
		compression: compression.None,
		maxSize:     DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.err != nil {
		return nil, fmt.Errorf("invalid codec type registration: %w", config.err)
	}

	encMode, err := encOpts.EncModeWithTags(config.tags)
	if err != nil {
		return nil, err
	}
	decMode, err := decOpts.DecModeWithTags(config.tags)
	if err != nil {
		return nil, err
	}

	compressor, err := compression.New(config.compression)
	if err != nil {
		return nil, err
	}

	zstd, err := compression.NewZstd()
	if err != nil {
		return nil, err
	}

	return &Codec{
		encMode:    encMode,
		decMode:    decMode,
		compressor: compressor,
		threshold:  config.threshold,
		maxSize:    config.maxSize,
		zstd:       zstd,
		brotli:     compression.NewBrotli(),
	}, nil
}

// MaxFrameSize returns the largest payload accepted
func (c *Codec) MaxFrameSize() int {
	return c.maxSize
}

// NewDecoder returns a frame Decoder bounded by the codec frame size.
func (c *Codec) NewDecoder() *Decoder {
	return NewDecoder(c.maxSize)
}

// Encode returns the frame of msg.
func (c *Codec) Encode(msg *Message) ([]byte, error) {
	payload, err := c.encMode.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message (%s): %w", msg.Command, err)
	}

	marker := MarkerPlain
	if c.compressor != nil && len(payload) >= c.threshold {
		compressed, err := c.compressor.Compress(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to compress message (%s): %w", msg.Command, err)
		}
		payload = compressed
		marker = markerOf(c.compressor.Name())
	}

	if c.maxSize > 0 && len(payload) > c.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", gerrors.ErrFrameTooLarge, len(payload))
	}
	return EncodeFrame(marker, payload), nil
}

// Decode returns the message carried by frame.
func (c *Codec) Decode(frame *Frame) (*Message, error) {
	payload := frame.Payload
	var err error
	switch frame.Marker {
	case MarkerZstd:
		payload, err = c.zstd.Decompress(payload, c.maxSize)
	case MarkerBrotli:
		payload, err = c.brotli.Decompress(payload, c.maxSize)
	case MarkerPlain:
	default:
		err = fmt.Errorf("%w: unknown marker %q", gerrors.ErrMalformedFrame, frame.Marker)
	}
	if err != nil {
		return nil, err
	}

	msg := new(Message)
	if err := c.decMode.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("%w: %w", gerrors.ErrMalformedFrame, err)
	}
	msg.normalize()
	return msg, nil
}

// Marshal encodes a value with the codec registered types
func (c *Codec) Marshal(v any) ([]byte, error) {
	return c.encMode.Marshal(v)
}

// Unmarshal decodes data into v with the codec registered types
func (c *Codec) Unmarshal(data []byte, v any) error {
	return c.decMode.Unmarshal(data, v)
}

func markerOf(algorithm string) byte {
	switch algorithm {
	case compression.Zstd:
		return MarkerZstd
	case compression.Brotli:
		return MarkerBrotli
	default:
		return MarkerPlain
	}
}
