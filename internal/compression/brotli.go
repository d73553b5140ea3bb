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
	"bytes"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
)

// BrotliCompressor compresses payloads with Brotli. Writers and readers are
// pooled for reuse.
type BrotliCompressor struct {
	writerPool sync.Pool
	readerPool sync.Pool
}

var _ Compressor = (*BrotliCompressor)(nil)

// NewBrotli creates a BrotliCompressor using the default compression level.
func NewBrotli() *BrotliCompressor {
	b := &BrotliCompressor{}
	b.writerPool.New = func() any {
		return brotli.NewWriterLevel(nil, brotli.DefaultCompression)
	}
	b.readerPool.New = func() any {
		return brotli.NewReader(nil)
	}
	return b
}

// Name returns the algorithm name.
func (b *BrotliCompressor) Name() string {
	return Brotli
}

// Compress returns the compressed form of src.
func (b *BrotliCompressor) Compress(src []byte) ([]byte, error) {
	w := b.writerPool.Get().(*brotli.Writer)
	defer b.writerPool.Put(w)

	buf := bytes.NewBuffer(make([]byte, 0, len(src)/2+64))
	w.Reset(buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress returns the original payload.
func (b *BrotliCompressor) Decompress(src []byte, maxSize int) ([]byte, error) {
	r := b.readerPool.Get().(*brotli.Reader)
	defer b.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(src)); err != nil {
		return nil, err
	}

	var reader io.Reader = r
	if maxSize > 0 {
		reader = io.LimitReader(r, int64(maxSize)+1)
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && len(out) > maxSize {
		return nil, ErrTooLarge
	}
	return out, nil
}
