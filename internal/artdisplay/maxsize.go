// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package artdisplay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/kortschak/artdisplay/internal/celext"
)

// DefaultMaxSize is the default maximum art size expression. It limits the
// art to a third of the window height so that the art does not force the
// window to grow.
const DefaultMaxSize = "height / 3"

// MaxSize computes the maximum art size from the window size.
type MaxSize struct {
	src string
	prg cel.Program
	log *slog.Logger
}

// NewMaxSize returns a MaxSize for the CEL expression src. The expression
// has the integer variables width and height in scope and must evaluate to
// an integer.
func NewMaxSize(src string, log *slog.Logger) (*MaxSize, error) {
	env, err := cel.NewEnv(
		celext.Lib(log),
		cel.Variable("width", cel.IntType),
		cel.Variable("height", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create env: %w", err)
	}
	ast, iss := env.Compile(src)
	if iss.Err() != nil {
		return nil, fmt.Errorf("failed compilation: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.IntType) {
		return nil, fmt.Errorf("max size expression must be int, not %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed program instantiation: %w", err)
	}
	return &MaxSize{src: src, prg: prg, log: log}, nil
}

// Eval returns the maximum art size for a window of the given size.
// Evaluation failures and negative results give zero.
func (m *MaxSize) Eval(width, height int) int {
	out, _, err := m.prg.Eval(map[string]any{
		"width":  width,
		"height": height,
	})
	if err != nil {
		m.log.LogAttrs(context.Background(), slog.LevelWarn, "max size evaluation failed", slog.String("src", m.src), slog.Any("error", err))
		return 0
	}
	n, ok := out.(types.Int)
	if !ok || n < 0 {
		return 0
	}
	return int(n)
}

func (m *MaxSize) String() string { return m.src }
