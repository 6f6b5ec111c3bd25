package frontend

// PadPair computes the (before, after) padding that makes a strided
// window sweep produce ceil(inputSize/stride) outputs, Keras "same"
// semantics. When the total padding is odd the extra cell goes after.
func PadPair(inputSize, kernelSize, stride int) (before, after int) {
	out := (inputSize + stride - 1) / stride
	pad := (out-1)*stride + kernelSize - inputSize
	if pad < 0 {
		pad = 0
	}
	before = pad / 2
	return before, pad - before
}
