package tensor

import "fmt"

// Array is a dense float32 tensor in row-major layout.
//
// The conversion pipeline is float32-only: Keras weight arrays arrive
// as float32 and the extracted parameter map is emitted as float32,
// so Array does not carry runtime dtype information.
type Array struct {
	shape Shape
	data  []float32
}

// New creates a zero-filled Array with the given shape.
func New(shape Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Array{
		shape: shape.Clone(),
		data:  make([]float32, shape.NumElements()),
	}, nil
}

// Zeros creates a zero-filled Array, panicking on an invalid shape.
// Intended for internally-constructed shapes that are known valid,
// such as the implicit initial state of a recurrent cell.
func Zeros(shape Shape) *Array {
	a, err := New(shape)
	if err != nil {
		panic(err)
	}
	return a
}

// FromSlice creates an Array that adopts data as its backing storage.
// The length of data must equal the number of elements in shape.
func FromSlice(shape Shape, data []float32) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, got %d",
			shape, shape.NumElements(), len(data))
	}
	return &Array{shape: shape.Clone(), data: data}, nil
}

// Shape returns the array's shape.
func (a *Array) Shape() Shape {
	return a.shape
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.shape)
}

// Data returns the backing float32 slice in row-major order.
func (a *Array) Data() []float32 {
	return a.data
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	data := make([]float32, len(a.data))
	copy(data, a.data)
	return &Array{shape: a.shape.Clone(), data: data}
}

// String returns a short human-readable description.
func (a *Array) String() string {
	return fmt.Sprintf("Array(shape=%v)", a.shape)
}
