// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package celext provides extensions to ease use of integer size
// arithmetic in CEL layout expressions.
package celext

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"google.golang.org/protobuf/types/known/structpb"
)

// Lib returns a cel.EnvOption to configure extended functions to ease
// layout size calculations.
//
// # Min
//
// Returns the smaller of two integers:
//
//	min(<int>, <int>) -> <int>
//
// Examples:
//
//	min(640, 480)  // return 480
//
// # Max
//
// Returns the larger of two integers:
//
//	max(<int>, <int>) -> <int>
//
// Examples:
//
//	max(640, 480)  // return 640
//
// # Clamp
//
// Returns the first parameter limited to the closed interval given by the
// second and third parameters:
//
//	clamp(<int>, <int>, <int>) -> <int>
//
// Examples:
//
//	clamp(1000, 32, 512)  // return 512
//	clamp(16, 32, 512)    // return 32
//
// # Debug
//
// The second parameter is returned unaltered and the value is logged to the
// lib's logger:
//
//	debug(<string>, <dyn>) -> <dyn>
//
// Examples:
//
//	debug("tag", expr) // return expr even if it is an error and logs with "tag".
func Lib(log *slog.Logger) cel.EnvOption {
	return cel.Lib(lib{log: log})
}

type lib struct {
	log *slog.Logger
}

func (l lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("min",
			cel.Overload(
				"min_int_int",
				[]*cel.Type{cel.IntType, cel.IntType},
				cel.IntType,
				cel.BinaryBinding(minInt),
			),
		),
		cel.Function("max",
			cel.Overload(
				"max_int_int",
				[]*cel.Type{cel.IntType, cel.IntType},
				cel.IntType,
				cel.BinaryBinding(maxInt),
			),
		),
		cel.Function("clamp",
			cel.Overload(
				"clamp_int_int_int",
				[]*cel.Type{cel.IntType, cel.IntType, cel.IntType},
				cel.IntType,
				cel.FunctionBinding(clampInt),
			),
		),
		cel.Function("debug",
			cel.Overload(
				"debug_string_dyn",
				[]*cel.Type{cel.StringType, cel.DynType},
				cel.DynType,
				cel.BinaryBinding(l.logDebug),
				cel.OverloadIsNonStrict(),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption { return nil }

func minInt(arg0, arg1 ref.Val) ref.Val {
	a, ok := arg0.(types.Int)
	if !ok {
		return types.ValOrErr(arg0, "no such overload")
	}
	b, ok := arg1.(types.Int)
	if !ok {
		return types.ValOrErr(arg1, "no such overload")
	}
	return min(a, b)
}

func maxInt(arg0, arg1 ref.Val) ref.Val {
	a, ok := arg0.(types.Int)
	if !ok {
		return types.ValOrErr(arg0, "no such overload")
	}
	b, ok := arg1.(types.Int)
	if !ok {
		return types.ValOrErr(arg1, "no such overload")
	}
	return max(a, b)
}

func clampInt(args ...ref.Val) ref.Val {
	if len(args) != 3 {
		return types.NewErr("no such overload")
	}
	v, ok := args[0].(types.Int)
	if !ok {
		return types.ValOrErr(args[0], "no such overload")
	}
	lo, ok := args[1].(types.Int)
	if !ok {
		return types.ValOrErr(args[1], "no such overload")
	}
	hi, ok := args[2].(types.Int)
	if !ok {
		return types.ValOrErr(args[2], "no such overload")
	}
	if lo > hi {
		return types.NewErr("invalid clamp interval: [%d, %d]", lo, hi)
	}
	return min(max(v, lo), hi)
}

func (l lib) logDebug(arg0, arg1 ref.Val) ref.Val {
	tag, ok := arg0.(types.String)
	if !ok {
		return types.ValOrErr(tag, "no such overload")
	}
	if l.log == nil {
		return arg1
	}
	val, err := arg1.ConvertToNative(reflect.TypeOf((*structpb.Value)(nil)))
	if err != nil {
		l.log.LogAttrs(context.Background(), slog.LevelError, "cel debug log error", slog.String("tag", string(tag)), slog.Any("error", err))
	} else {
		l.log.LogAttrs(context.Background(), slog.LevelDebug, "cel debug log", slog.String("tag", string(tag)), slog.Any("value", val))
	}
	return arg1
}
