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

import (
	"errors"
	"fmt"
	"runtime"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/log"
)

// Failure carries an error and the stack where it was captured as a plain
// value, so it can travel through callback chains and mailboxes like any
// result. A Failure nobody looked at is logged once when garbage collected.
type Failure struct {
	err       error
	logged    *atomic.Bool
	retrieved *atomic.Bool
	muted     *atomic.Bool
}

// enforce compilation error
var _ error = (*Failure)(nil)

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// NewFailure wraps err. A Failure passed in is returned as is.
func NewFailure(err error) *Failure {
	if err == nil {
		err = errors.New("nil failure")
	}

	if failure, ok := err.(*Failure); ok {
		return failure
	}

	if _, ok := err.(stackTracer); !ok {
		err = pkgerrors.WithStack(err)
	}

	failure := &Failure{
		err:       err,
		logged:    atomic.NewBool(false),
		retrieved: atomic.NewBool(false),
		muted:     atomic.NewBool(false),
	}
	runtime.SetFinalizer(failure, finalizeFailure)
	return failure
}

// AsFailure returns the Failure held by v, if any.
func AsFailure(v any) (*Failure, bool) {
	failure, ok := v.(*Failure)
	return failure, ok
}

// Error implements the standard error interface
func (f *Failure) Error() string {
	return f.err.Error()
}

// Unwrap returns the wrapped error
func (f *Failure) Unwrap() error {
	return f.err
}

// Stack returns the error and the stack trace where it was captured.
func (f *Failure) Stack() string {
	return fmt.Sprintf("%+v", f.err)
}

// IsCancellation reports whether the failure is a cancellation.
func (f *Failure) IsCancellation() bool {
	return errors.Is(f.err, gerrors.ErrCancelled)
}

// Log writes the failure once. Later calls are no-ops.
func (f *Failure) Log(logger log.Logger) {
	if f.logged.CompareAndSwap(false, true) {
		if logger == nil {
			logger = log.DefaultLogger
		}
		logger.Error(f.Stack())
	}
}

// Logged reports whether the failure has been logged.
func (f *Failure) Logged() bool {
	return f.logged.Load()
}

// Mute disables the unretrieved failure diagnosis.
func (f *Failure) Mute() {
	f.muted.Store(true)
}

func (f *Failure) markRetrieved() {
	f.retrieved.Store(true)
}

// release makes a failure returned again by user code eligible for the
// unretrieved diagnosis.
func (f *Failure) release() {
	f.retrieved.Store(false)
}

func finalizeFailure(f *Failure) {
	if f.logged.Load() || f.retrieved.Load() || f.muted.Load() || f.IsCancellation() {
		return
	}
	log.DefaultLogger.Warnf("unretrieved failure: %s", f.Stack())
}
