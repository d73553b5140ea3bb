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

package actor

// spawnConfig holds the settings of a spawned actor
type spawnConfig struct {
	behavior string
	name     string
}

// SpawnOption is the interface that applies a spawn option.
type SpawnOption interface {
	// Apply sets the Option value of a spawn config.
	Apply(config *spawnConfig)
}

var _ SpawnOption = SpawnOptionFunc(nil)

// SpawnOptionFunc implements the SpawnOption interface.
type SpawnOptionFunc func(*spawnConfig)

// Apply applies the option to the spawn config
func (f SpawnOptionFunc) Apply(c *spawnConfig) {
	f(c)
}

// WithBehavior sets the registered behavior of the spawned actor
func WithBehavior(name string) SpawnOption {
	return SpawnOptionFunc(func(c *spawnConfig) {
		c.behavior = name
	})
}

// WithName sets the name of the spawned actor
func WithName(name string) SpawnOption {
	return SpawnOptionFunc(func(c *spawnConfig) {
		c.name = name
	})
}
