// Copyright 2026 Lumen ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense float32 arrays
// the converter traffics in: model weights on the way in, extracted
// parameters on the way out.
//
// Example:
//
//	kernel, err := tensor.FromSlice(tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(kernel.Shape()) // (2, 3)
package tensor

import (
	internaltensor "github.com/lumen-ml/lumen/internal/tensor"
)

// Shape represents tensor dimensions.
type Shape = internaltensor.Shape

// Array is a dense float32 tensor in row-major layout.
type Array = internaltensor.Array

// New creates a zero-filled array of the given shape.
func New(shape Shape) (*Array, error) {
	return internaltensor.New(shape)
}

// FromSlice creates an array that adopts data as its backing storage.
// The data length must match the number of elements in shape.
func FromSlice(shape Shape, data []float32) (*Array, error) {
	return internaltensor.FromSlice(shape, data)
}
