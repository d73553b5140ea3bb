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

package compression

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdCompressor compresses payloads with Zstandard. Encoders and decoders
// are pooled for reuse.
type ZstdCompressor struct {
	encoderPool sync.Pool
	decoderPool sync.Pool
}

var _ Compressor = (*ZstdCompressor)(nil)

// NewZstd creates a ZstdCompressor. It eagerly validates the encoder and
// decoder configuration.
func NewZstd() (*ZstdCompressor, error) {
	encOpts := []zstd.EOption{
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
		zstd.WithLowerEncoderMem(true),
	}
	decOpts := []zstd.DOption{
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(256 << 20),
	}

	enc, err := zstd.NewWriter(nil, encOpts...)
	if err != nil {
		return nil, fmt.Errorf("invalid zstd encoder options: %w", err)
	}
	dec, err := zstd.NewReader(nil, decOpts...)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("invalid zstd decoder options: %w", err)
	}

	z := &ZstdCompressor{}
	z.encoderPool.Put(enc)
	z.decoderPool.Put(dec)
	z.encoderPool.New = func() any {
		e, _ := zstd.NewWriter(nil, encOpts...)
		return e
	}
	z.decoderPool.New = func() any {
		d, _ := zstd.NewReader(nil, decOpts...)
		return d
	}
	return z, nil
}

// Name returns the algorithm name.
func (z *ZstdCompressor) Name() string {
	return Zstd
}

// Compress returns the compressed form of src.
func (z *ZstdCompressor) Compress(src []byte) ([]byte, error) {
	enc, ok := z.encoderPool.Get().(*zstd.Encoder)
	if !ok || enc == nil {
		return nil, errors.New("failed to create zstd encoder")
	}
	defer z.encoderPool.Put(enc)
	return enc.EncodeAll(src, make([]byte, 0, len(src)/2+64)), nil
}

// Decompress returns the original payload.
func (z *ZstdCompressor) Decompress(src []byte, maxSize int) ([]byte, error) {
	dec, ok := z.decoderPool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		return nil, errors.New("failed to create zstd decoder")
	}
	defer z.decoderPool.Put(dec)

	out, err := dec.DecodeAll(src, nil)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && len(out) > maxSize {
		return nil, ErrTooLarge
	}
	return out, nil
}
