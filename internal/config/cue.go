// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/encoding/gocode/gocodec"
	"golang.org/x/exp/constraints"
)

// ValidationError is a configuration that does not satisfy its schema.
type ValidationError struct {
	// Paths holds the sorted unique field paths that
	// failed validation.
	Paths [][]string
	// Err is the CUE error describing the failures.
	Err error
}

func (e *ValidationError) Error() string {
	if len(e.Paths) == 0 {
		return e.Err.Error()
	}
	fields := make([]string, len(e.Paths))
	for i, p := range e.Paths {
		fields[i] = strings.Join(p, ".")
	}
	return fmt.Sprintf("invalid fields %s: %v", strings.Join(fields, ", "), e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate unifies cfg with the provided CUE schema and checks that the
// result is concrete. If it is not, the returned error is a
// *ValidationError.
func Validate(schema string, cfg any) error {
	ctx := cuecontext.New()

	v := ctx.CompileString(schema)
	if err := v.Err(); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	w, err := gocodec.New(ctx, nil).Decode(cfg)
	if err != nil {
		return err
	}

	u := v.Unify(w)
	err = u.Validate(cue.Concrete(true), cue.Final())
	errs := cerrors.Errors(err)
	if len(errs) == 0 {
		return nil
	}
	paths := make([][]string, 0, len(errs))
	for _, e := range errs {
		if p := cerrors.Path(e); p != nil {
			paths = append(paths, p)
		}
	}
	return &ValidationError{Paths: unique(paths), Err: cerrors.Promote(err, "")}
}

// unique returns paths lexically sorted in ascending order and with repeated
// and nil elements omitted.
func unique(paths [][]string) [][]string {
	paths = slices.DeleteFunc(paths, func(p []string) bool { return p == nil })
	if len(paths) < 2 {
		return paths
	}
	slices.SortFunc(paths, compare[string])
	return slices.CompactFunc(paths, func(a, b []string) bool { return compare(a, b) == 0 })
}

func compare[T constraints.Ordered](a, b []T) int {
	l := len(a)
	if len(b) < l {
		l = len(b)
	}
	if l == 0 || &a[0] == &b[0] {
		goto same
	}
	for i := 0; i < l; i++ {
		e1, e2 := a[i], b[i]
		if e1 < e2 {
			return -1
		}
		if e1 > e2 {
			return +1
		}
	}
same:
	if len(a) < len(b) {
		return -1
	}
	if len(a) > len(b) {
		return +1
	}
	return 0
}
