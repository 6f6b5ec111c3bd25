package keras

// Attrs is the kind-specific attribute record of a layer descriptor.
// Each supported kind with configuration has its own struct; kinds
// without configuration (merges, flatten, dropout) carry a nil Attrs.
type Attrs interface {
	isLayerAttrs()
}

// DenseAttrs configures a fully-connected layer.
type DenseAttrs struct {
	Units      int
	UseBias    bool
	Activation string
}

// ActivationAttrs configures a standalone Activation layer. Alpha and
// Beta are the optional learned scale/offset of a "linear" activation;
// nil means the defaults 1 and 0.
type ActivationAttrs struct {
	Activation string
	Alpha      *float64
	Beta       *float64
}

// ReLUAttrs configures an advanced ReLU layer. A nil MaxValue means
// unclipped.
type ReLUAttrs struct {
	MaxValue *float64
}

// LeakyReLUAttrs configures a LeakyReLU layer.
type LeakyReLUAttrs struct {
	Alpha float64
}

// ELUAttrs configures an ELU layer.
type ELUAttrs struct {
	Alpha float64
}

// PReLUAttrs configures a PReLU layer; the learned per-channel alpha
// array travels in the layer's weight list.
type PReLUAttrs struct{}

// ThresholdedReLUAttrs configures a ThresholdedReLU layer.
type ThresholdedReLUAttrs struct {
	Theta float64
}

// ConvAttrs configures the 2D convolution family. DepthMultiplier is
// meaningful for DepthwiseConv2D and SeparableConv2D only.
type ConvAttrs struct {
	Filters         int
	KernelSize      [2]int
	Strides         [2]int
	Padding         string // "valid" or "same"
	DilationRate    [2]int
	DepthMultiplier int
	UseBias         bool
	Activation      string
}

// PoolAttrs configures windowed 2D pooling.
type PoolAttrs struct {
	PoolSize [2]int
	Strides  [2]int
	Padding  string // "valid" or "same"
}

// BatchNormAttrs configures batch normalization. Center and Scale
// decide whether the learned beta and gamma arrays are present.
type BatchNormAttrs struct {
	Epsilon float64
	Center  bool
	Scale   bool
}

// ReshapeAttrs configures a Reshape layer. TargetShape excludes the
// batch dimension, as in Keras.
type ReshapeAttrs struct {
	TargetShape []int
}

// ZeroPadding2DAttrs holds per-side spatial padding. The JSON loader
// normalizes the scalar, symmetric-pair, and per-side forms into this
// record; see padding2DFromConfig.
type ZeroPadding2DAttrs struct {
	Top, Bottom, Left, Right int
}

// Cropping2DAttrs holds per-side spatial cropping.
type Cropping2DAttrs struct {
	Top, Bottom, Left, Right int
}

// UpSamplingAttrs holds the per-axis scale factors of the 1D/2D/3D
// upsampling variants (one, two, or three entries).
type UpSamplingAttrs struct {
	Size []int
}

// RecurrentAttrs configures SimpleRNN, LSTM and GRU cells.
type RecurrentAttrs struct {
	Units               int
	Activation          string
	RecurrentActivation string
	UseBias             bool
}

func (*DenseAttrs) isLayerAttrs()           {}
func (*ActivationAttrs) isLayerAttrs()      {}
func (*ReLUAttrs) isLayerAttrs()            {}
func (*LeakyReLUAttrs) isLayerAttrs()       {}
func (*ELUAttrs) isLayerAttrs()             {}
func (*PReLUAttrs) isLayerAttrs()           {}
func (*ThresholdedReLUAttrs) isLayerAttrs() {}
func (*ConvAttrs) isLayerAttrs()            {}
func (*PoolAttrs) isLayerAttrs()            {}
func (*BatchNormAttrs) isLayerAttrs()       {}
func (*ReshapeAttrs) isLayerAttrs()         {}
func (*ZeroPadding2DAttrs) isLayerAttrs()   {}
func (*Cropping2DAttrs) isLayerAttrs()      {}
func (*UpSamplingAttrs) isLayerAttrs()      {}
func (*RecurrentAttrs) isLayerAttrs()       {}
