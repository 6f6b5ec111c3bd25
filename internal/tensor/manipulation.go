package tensor

import "fmt"

// Transpose permutes the array's axes and returns a new contiguous
// array. axes must be a permutation of [0, rank).
//
// Example: a (kh, kw, in, out) convolution kernel becomes (out, in,
// kh, kw) with axes [3, 2, 0, 1].
func (a *Array) Transpose(axes []int) (*Array, error) {
	rank := a.Rank()
	if len(axes) != rank {
		return nil, fmt.Errorf("transpose: got %d axes for rank %d", len(axes), rank)
	}

	seen := make([]bool, rank)
	outShape := make(Shape, rank)
	for i, ax := range axes {
		if ax < 0 || ax >= rank || seen[ax] {
			return nil, fmt.Errorf("transpose: invalid axis permutation %v", axes)
		}
		seen[ax] = true
		outShape[i] = a.shape[ax]
	}

	out := &Array{
		shape: outShape,
		data:  make([]float32, len(a.data)),
	}

	inStrides := a.shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	idx := make([]int, rank)
	for outOffset := range out.data {
		// Decompose the output offset into multi-dimensional indices.
		rem := outOffset
		for d := 0; d < rank; d++ {
			idx[d] = rem / outStrides[d]
			rem %= outStrides[d]
		}
		inOffset := 0
		for d := 0; d < rank; d++ {
			inOffset += idx[d] * inStrides[axes[d]]
		}
		out.data[outOffset] = a.data[inOffset]
	}

	return out, nil
}

// Reshape returns a view-copy of the array with a new shape. The
// element count must be preserved.
func (a *Array) Reshape(shape Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	if shape.NumElements() != len(a.data) {
		return nil, fmt.Errorf("reshape: cannot reshape %v into %v", a.shape, shape)
	}
	data := make([]float32, len(a.data))
	copy(data, a.data)
	return &Array{shape: shape.Clone(), data: data}, nil
}

// RollAxes returns the axis permutation that rotates [0, rank) right
// by one position, e.g. rank 3 yields [2, 0, 1]. This moves the
// trailing (channel-last) axis to the front, matching the channel-first
// convention of the converted graph.
func RollAxes(rank int) []int {
	axes := make([]int, rank)
	for i := range axes {
		axes[i] = (i - 1 + rank) % rank
	}
	return axes
}
