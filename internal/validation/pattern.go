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

package validation

import (
	"fmt"
	"regexp"
)

// namePattern matches actor and monitor names: word characters with
// non-leading '-' or '_'.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-_]*$`)

type patternValidator struct {
	pattern *regexp.Regexp
	value   string
	err     error
}

var _ Validator = (*patternValidator)(nil)

// NewPatternValidator checks value against pattern. err is returned on mismatch.
func NewPatternValidator(pattern *regexp.Regexp, value string, err error) Validator {
	return &patternValidator{pattern: pattern, value: value, err: err}
}

// NewNameValidator checks that name is a valid actor name.
func NewNameValidator(name string) Validator {
	return NewPatternValidator(namePattern, name, fmt.Errorf("invalid name=(%s): must contain only word characters plus non-leading '-' or '_'", name))
}

// Validate executes the validation
func (x *patternValidator) Validate() error {
	if !x.pattern.MatchString(x.value) {
		return x.err
	}
	return nil
}

type oneOfValidator struct {
	field   string
	value   string
	allowed []string
}

// NewOneOfValidator checks that value is one of allowed.
func NewOneOfValidator(field, value string, allowed ...string) Validator {
	return oneOfValidator{field: field, value: value, allowed: allowed}
}

// Validate executes the validation
func (x oneOfValidator) Validate() error {
	for _, candidate := range x.allowed {
		if candidate == x.value {
			return nil
		}
	}
	return fmt.Errorf("invalid %s=(%s): expected one of %v", x.field, x.value, x.allowed)
}
