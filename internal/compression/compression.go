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
)

// ErrUnknownAlgorithm is returned for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

// ErrTooLarge is returned when a decompressed payload exceeds the allowed size.
var ErrTooLarge = errors.New("decompressed payload too large")

const (
	// None disables payload compression.
	None = "none"
	// Zstd selects Zstandard.
	Zstd = "zstd"
	// Brotli selects Brotli.
	Brotli = "brotli"
)

// Compressor compresses whole mailbox payloads. Implementations are safe
// for concurrent use.
type Compressor interface {
	// Name returns the algorithm name.
	Name() string
	// Compress returns the compressed form of src.
	Compress(src []byte) ([]byte, error)
	// Decompress returns the original payload, failing with ErrTooLarge
	// past maxSize bytes when maxSize is positive.
	Decompress(src []byte, maxSize int) ([]byte, error)
}

// New returns the Compressor for name. None returns nil.
func New(name string) (Compressor, error) {
	switch name {
	case "", None:
		return nil, nil
	case Zstd:
		return NewZstd()
	case Brotli:
		return NewBrotli(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
	}
}
