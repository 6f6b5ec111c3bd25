// Copyright 2026 Lumen ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package relay exposes the converter's target intermediate
// representation: a pure dataflow graph of operator calls over input
// variables and named constants, closed into a function whose
// parameters are the graph's free variables.
//
// Expressions are immutable once built. Shared subexpressions are
// represented by pointer identity, so a value consumed twice appears
// once in the printed program.
//
// Example:
//
//	fn, params, err := keras.Convert(model, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(relay.PrintFunction(fn))
//	fmt.Println(len(params), "extracted parameters")
package relay

import (
	internalrelay "github.com/lumen-ml/lumen/internal/relay"
)

// Expr is any node of the dataflow graph.
type Expr = internalrelay.Expr

// Var is a free input variable with an optional shape annotation.
type Var = internalrelay.Var

// Constant references an extracted parameter array by name.
type Constant = internalrelay.Constant

// Scalar is an inline float32 literal.
type Scalar = internalrelay.Scalar

// Call applies a named operator to argument expressions.
type Call = internalrelay.Call

// Tuple groups several values into one.
type Tuple = internalrelay.Tuple

// TupleGetItem projects one field out of a tuple-valued expression.
type TupleGetItem = internalrelay.TupleGetItem

// Function closes a body expression over its free variables.
type Function = internalrelay.Function

// Attrs carries the keyword attributes of a call.
type Attrs = internalrelay.Attrs

// NewFunction wraps body in a function whose parameters are the free
// variables of body, in first-use order.
func NewFunction(body Expr) *Function {
	return internalrelay.NewFunction(body)
}

// FreeVars returns the free variables of expr in first-use order.
func FreeVars(expr Expr) []*Var {
	return internalrelay.FreeVars(expr)
}

// Constants returns the constants referenced by expr in first-use
// order.
func Constants(expr Expr) []*Constant {
	return internalrelay.Constants(expr)
}

// Print renders an expression as a sequence of single-assignment
// operator applications.
func Print(expr Expr) string {
	return internalrelay.Print(expr)
}

// PrintFunction renders a function with its parameter list followed by
// the body.
func PrintFunction(fn *Function) string {
	return internalrelay.PrintFunction(fn)
}

// CountOps reports how many calls to the named operator expr contains,
// counting shared subexpressions once.
func CountOps(expr Expr, op string) int {
	return internalrelay.CountOps(expr, op)
}
