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

package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMpsc(t *testing.T) {
	t.Run("With Push/Pop", func(t *testing.T) {
		q := NewMpsc[int]()
		require.True(t, q.IsEmpty())
		_, ok := q.Pop()
		require.False(t, ok)

		for i := 0; i < 100; i++ {
			q.Push(i)
		}
		require.EqualValues(t, 100, q.Len())
		for i := 0; i < 100; i++ {
			x, ok := q.Pop()
			require.True(t, ok)
			require.Equal(t, i, x)
		}
		assert.True(t, q.IsEmpty())
		assert.Zero(t, q.Len())
	})
	t.Run("With concurrent producers", func(t *testing.T) {
		q := NewMpsc[int]()
		var wg sync.WaitGroup
		for p := 0; p < 8; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 1000; i++ {
					q.Push(p*1000 + i)
				}
			}(p)
		}
		wg.Wait()

		last := make(map[int]int)
		count := 0
		for {
			x, ok := q.Pop()
			if !ok {
				break
			}
			producer := x / 1000
			if prev, seen := last[producer]; seen {
				require.Greater(t, x, prev)
			}
			last[producer] = x
			count++
		}
		assert.Equal(t, 8000, count)
	})
}

func TestQueue(t *testing.T) {
	t.Run("With Push/Pop and resize", func(t *testing.T) {
		q := New[int]()
		for i := 0; i < 100; i++ {
			require.True(t, q.Push(i))
		}
		require.Equal(t, 100, q.Len())
		for i := 0; i < 100; i++ {
			x, ok := q.Pop()
			require.True(t, ok)
			require.Equal(t, i, x)
		}
		_, ok := q.Pop()
		assert.False(t, ok)
	})
	t.Run("With wrap around", func(t *testing.T) {
		q := New[int]()
		next, expected := 0, 0
		for round := 0; round < 50; round++ {
			for i := 0; i < 7; i++ {
				q.Push(next)
				next++
			}
			for i := 0; i < 5; i++ {
				x, ok := q.Pop()
				require.True(t, ok)
				require.Equal(t, expected, x)
				expected++
			}
		}
		for _, x := range q.WaitAll() {
			require.Equal(t, expected, x)
			expected++
		}
		assert.Equal(t, next, expected)
	})
	t.Run("With Wait unblocked by Push", func(t *testing.T) {
		q := New[string]()
		done := make(chan string)
		go func() {
			v, _ := q.Wait()
			done <- v
		}()
		q.Push("frame")
		assert.Equal(t, "frame", <-done)
	})
	t.Run("With Close", func(t *testing.T) {
		q := New[int]()
		q.Push(1)
		q.Close()
		assert.True(t, q.IsClosed())
		assert.False(t, q.Push(2))
		x, ok := q.Wait()
		require.True(t, ok)
		assert.Equal(t, 1, x)
		_, ok = q.Wait()
		assert.False(t, ok)
		assert.Nil(t, q.WaitAll())
	})
}
