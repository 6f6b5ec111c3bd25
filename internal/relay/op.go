package relay

// Operator constructors. Each returns a Call applying one primitive of
// the IR. Attribute names follow the conventions of the op set; the
// constructors exist so lowering code never spells attribute maps by
// hand.

// Const wraps a float32 literal as an expression.
func Const(v float32) *Scalar {
	return &Scalar{Value: v}
}

// NewVar creates a free input variable. A nil shape means unspecified.
func NewVar(name string, shape []int) *Var {
	return &Var{Name: name, Shape: shape}
}

func binary(op string, lhs, rhs Expr) *Call {
	return &Call{Op: op, Args: []Expr{lhs, rhs}}
}

func unary(op string, x Expr) *Call {
	return &Call{Op: op, Args: []Expr{x}}
}

// Add returns lhs + rhs.
func Add(lhs, rhs Expr) *Call { return binary("add", lhs, rhs) }

// Subtract returns lhs - rhs.
func Subtract(lhs, rhs Expr) *Call { return binary("subtract", lhs, rhs) }

// Multiply returns lhs * rhs.
func Multiply(lhs, rhs Expr) *Call { return binary("multiply", lhs, rhs) }

// Divide returns lhs / rhs.
func Divide(lhs, rhs Expr) *Call { return binary("divide", lhs, rhs) }

// Maximum returns the element-wise maximum of lhs and rhs.
func Maximum(lhs, rhs Expr) *Call { return binary("maximum", lhs, rhs) }

// Greater returns the element-wise comparison lhs > rhs.
func Greater(lhs, rhs Expr) *Call { return binary("greater", lhs, rhs) }

// Exp returns e^x.
func Exp(x Expr) *Call { return unary("exp", x) }

// Log returns the natural logarithm of x.
func Log(x Expr) *Call { return unary("log", x) }

// Abs returns |x|.
func Abs(x Expr) *Call { return unary("abs", x) }

// Negative returns -x.
func Negative(x Expr) *Call { return unary("negative", x) }

// Sigmoid returns 1/(1+e^-x).
func Sigmoid(x Expr) *Call { return unary("sigmoid", x) }

// Tanh returns the hyperbolic tangent of x.
func Tanh(x Expr) *Call { return unary("tanh", x) }

// Cast converts x to the given dtype.
func Cast(x Expr, dtype string) *Call {
	return &Call{Op: "cast", Args: []Expr{x}, Attrs: Attrs{"dtype": dtype}}
}

// Clip bounds x into [min, max].
func Clip(x Expr, min, max float64) *Call {
	return &Call{Op: "clip", Args: []Expr{x}, Attrs: Attrs{"a_min": min, "a_max": max}}
}

// ReLU returns max(x, 0).
func ReLU(x Expr) *Call { return unary("nn.relu", x) }

// LeakyReLU returns x for x >= 0 and alpha*x otherwise.
func LeakyReLU(x Expr, alpha float64) *Call {
	return &Call{Op: "nn.leaky_relu", Args: []Expr{x}, Attrs: Attrs{"alpha": alpha}}
}

// Softmax normalizes x along axis.
func Softmax(x Expr, axis int) *Call {
	return &Call{Op: "nn.softmax", Args: []Expr{x}, Attrs: Attrs{"axis": axis}}
}

// Dense computes data * weight^T where weight has shape (units, in).
func Dense(data, weight Expr, units int) *Call {
	return &Call{Op: "nn.dense", Args: []Expr{data, weight}, Attrs: Attrs{"units": units}}
}

// BiasAdd adds a 1D bias along the channel axis.
func BiasAdd(x, bias Expr) *Call {
	return &Call{Op: "nn.bias_add", Args: []Expr{x, bias}}
}

// Conv2DAttrs holds the attributes shared by the convolution ops.
// Padding is symmetric (height, width); asymmetric padding is expressed
// with an explicit Pad in front of the convolution.
type Conv2DAttrs struct {
	Channels   int
	KernelSize [2]int
	Strides    [2]int
	Dilation   [2]int
	Padding    [2]int
	Groups     int
}

func (a Conv2DAttrs) attrs() Attrs {
	attrs := Attrs{
		"channels":    a.Channels,
		"kernel_size": []int{a.KernelSize[0], a.KernelSize[1]},
		"strides":     []int{a.Strides[0], a.Strides[1]},
		"dilation":    []int{a.Dilation[0], a.Dilation[1]},
		"padding":     []int{a.Padding[0], a.Padding[1]},
	}
	if a.Groups > 1 {
		attrs["groups"] = a.Groups
	}
	return attrs
}

// Conv2D applies a 2D convolution with channel-first data and
// (out, in, kh, kw) weight layout.
func Conv2D(data, weight Expr, attrs Conv2DAttrs) *Call {
	return &Call{Op: "nn.conv2d", Args: []Expr{data, weight}, Attrs: attrs.attrs()}
}

// Conv2DTranspose applies a 2D transposed convolution.
func Conv2DTranspose(data, weight Expr, attrs Conv2DAttrs) *Call {
	return &Call{Op: "nn.conv2d_transpose", Args: []Expr{data, weight}, Attrs: attrs.attrs()}
}

// Pad zero-pads x. padWidth holds (before, after) per axis.
func Pad(x Expr, padWidth [][2]int) *Call {
	flat := make([]int, 0, len(padWidth)*2)
	for _, p := range padWidth {
		flat = append(flat, p[0], p[1])
	}
	return &Call{Op: "nn.pad", Args: []Expr{x}, Attrs: Attrs{"pad_width": flat}}
}

// MaxPool2D applies windowed max pooling. padding is either
// (top, left) symmetric or (top, left, bottom, right).
func MaxPool2D(x Expr, poolSize, strides [2]int, padding []int) *Call {
	return &Call{Op: "nn.max_pool2d", Args: []Expr{x}, Attrs: Attrs{
		"pool_size": []int{poolSize[0], poolSize[1]},
		"strides":   []int{strides[0], strides[1]},
		"padding":   padding,
	}}
}

// AvgPool2D applies windowed average pooling. Padded cells are never
// counted in the divisor.
func AvgPool2D(x Expr, poolSize, strides [2]int, padding []int) *Call {
	return &Call{Op: "nn.avg_pool2d", Args: []Expr{x}, Attrs: Attrs{
		"pool_size":         []int{poolSize[0], poolSize[1]},
		"strides":           []int{strides[0], strides[1]},
		"padding":           padding,
		"count_include_pad": false,
	}}
}

// GlobalMaxPool2D reduces the spatial dimensions to 1x1 by max.
func GlobalMaxPool2D(x Expr) *Call { return unary("nn.global_max_pool2d", x) }

// GlobalAvgPool2D reduces the spatial dimensions to 1x1 by mean.
func GlobalAvgPool2D(x Expr) *Call { return unary("nn.global_avg_pool2d", x) }

// BatchFlatten collapses all trailing dimensions into one.
func BatchFlatten(x Expr) *Call { return unary("nn.batch_flatten", x) }

// BatchNorm normalizes x with frozen statistics. The call is
// tuple-valued (result, mean, variance); take Item(out, 0).
func BatchNorm(x, gamma, beta, mean, variance Expr, epsilon float64, center, scale bool) *Call {
	return &Call{
		Op:    "nn.batch_norm",
		Args:  []Expr{x, gamma, beta, mean, variance},
		Attrs: Attrs{"epsilon": epsilon, "center": center, "scale": scale},
	}
}

// Upsampling scales both spatial axes by the same integer factor.
func Upsampling(x Expr, scale int) *Call {
	return &Call{Op: "nn.upsampling", Args: []Expr{x}, Attrs: Attrs{"scale": scale}}
}

// Transpose permutes the axes of x.
func Transpose(x Expr, axes []int) *Call {
	return &Call{Op: "transpose", Args: []Expr{x}, Attrs: Attrs{"axes": axes}}
}

// Reshape reinterprets x with a new shape.
func Reshape(x Expr, newshape []int) *Call {
	return &Call{Op: "reshape", Args: []Expr{x}, Attrs: Attrs{"newshape": newshape}}
}

// Squeeze removes the given unit axes of x.
func Squeeze(x Expr, axes []int) *Call {
	return &Call{Op: "squeeze", Args: []Expr{x}, Attrs: Attrs{"axis": axes}}
}

// ExpandDims inserts a unit axis at the given position.
func ExpandDims(x Expr, axis int) *Call {
	return &Call{Op: "expand_dims", Args: []Expr{x}, Attrs: Attrs{"axis": axis}}
}

// SplitSections splits x into equal-width sections along axis. The
// call is tuple-valued; project slices with Item.
func SplitSections(x Expr, sections, axis int) *Call {
	return &Call{Op: "split", Args: []Expr{x}, Attrs: Attrs{"sections": sections, "axis": axis}}
}

// SplitIndices splits x at the given indices along axis, producing
// len(indices)+1 slices.
func SplitIndices(x Expr, indices []int, axis int) *Call {
	return &Call{Op: "split", Args: []Expr{x}, Attrs: Attrs{"indices": indices, "axis": axis}}
}

// StridedSlice extracts the region [begin, end) of x.
func StridedSlice(x Expr, begin, end []int) *Call {
	return &Call{Op: "strided_slice", Args: []Expr{x}, Attrs: Attrs{"begin": begin, "end": end}}
}

// Concatenate joins the fields of a tuple along axis.
func Concatenate(fields []Expr, axis int) *Call {
	return &Call{Op: "concatenate", Args: []Expr{&Tuple{Fields: fields}}, Attrs: Attrs{"axis": axis}}
}

// Item projects field i of a tuple-valued expression.
func Item(tuple Expr, i int) *TupleGetItem {
	return &TupleGetItem{Tuple: tuple, Index: i}
}
