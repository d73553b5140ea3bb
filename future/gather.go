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

package future

// Gather returns a Deferred resolved with the results of futures, in the
// order they were given, once all of them are done. A failed future leaves
// its Failure in its slot instead of failing the whole Deferred. Values that
// are not futures are taken as they are.
//
// Gather must be called from the loop goroutine.
func Gather(loop Loop, values ...any) *Deferred {
	gathered := NewDeferred(loop)
	results := make([]any, len(values))
	remaining := len(values)

	if remaining == 0 {
		_, _ = gathered.Callback(results)
		return gathered
	}

	for index, value := range values {
		MaybeAsync(loop, value).AddBoth(func(result any) any {
			results[index] = result
			remaining--
			if remaining == 0 {
				_, _ = gathered.Callback(results)
			}
			return result
		})
	}
	return gathered
}
