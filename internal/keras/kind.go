// Package keras models the source network: layer descriptors with
// typed attributes, call-site records, and the Keras model.to_json()
// architecture loader.
package keras

import "fmt"

// Kind identifies one supported layer type. The set is closed: the
// conversion engine dispatches on Kind with an exhaustive switch, so
// adding or removing a kind is a compile-time-visible change.
type Kind int

// Supported layer kinds.
const (
	KindInput Kind = iota
	KindDense
	KindActivation

	// Parameterized (advanced) activations.
	KindReLU
	KindLeakyReLU
	KindPReLU
	KindELU
	KindThresholdedReLU

	// Convolution family.
	KindConv2D
	KindConv2DTranspose
	KindDepthwiseConv2D
	KindSeparableConv2D

	// Pooling family.
	KindMaxPooling2D
	KindAveragePooling2D
	KindGlobalMaxPooling2D
	KindGlobalAveragePooling2D

	KindFlatten
	KindReshape
	KindConcatenate
	KindBatchNormalization

	// Merge family.
	KindAdd
	KindSubtract
	KindMultiply
	KindAverage
	KindMaximum

	// Spatial rearrangement. The 1D variants are recognized kinds whose
	// lowering is intentionally unimplemented.
	KindZeroPadding2D
	KindZeroPadding1D
	KindCropping2D
	KindCropping1D
	KindUpSampling1D
	KindUpSampling2D
	KindUpSampling3D

	// Recurrent cells.
	KindSimpleRNN
	KindLSTM
	KindGRU

	// Train-time-only layers lowered as identity.
	KindDropout
	KindSpatialDropout1D
	KindSpatialDropout2D

	kindCount // sentinel, keep last
)

var kindNames = map[Kind]string{
	KindInput:                  "InputLayer",
	KindDense:                  "Dense",
	KindActivation:             "Activation",
	KindReLU:                   "ReLU",
	KindLeakyReLU:              "LeakyReLU",
	KindPReLU:                  "PReLU",
	KindELU:                    "ELU",
	KindThresholdedReLU:        "ThresholdedReLU",
	KindConv2D:                 "Conv2D",
	KindConv2DTranspose:        "Conv2DTranspose",
	KindDepthwiseConv2D:        "DepthwiseConv2D",
	KindSeparableConv2D:        "SeparableConv2D",
	KindMaxPooling2D:           "MaxPooling2D",
	KindAveragePooling2D:       "AveragePooling2D",
	KindGlobalMaxPooling2D:     "GlobalMaxPooling2D",
	KindGlobalAveragePooling2D: "GlobalAveragePooling2D",
	KindFlatten:                "Flatten",
	KindReshape:                "Reshape",
	KindConcatenate:            "Concatenate",
	KindBatchNormalization:     "BatchNormalization",
	KindAdd:                    "Add",
	KindSubtract:               "Subtract",
	KindMultiply:               "Multiply",
	KindAverage:                "Average",
	KindMaximum:                "Maximum",
	KindZeroPadding2D:          "ZeroPadding2D",
	KindZeroPadding1D:          "ZeroPadding1D",
	KindCropping2D:             "Cropping2D",
	KindCropping1D:             "Cropping1D",
	KindUpSampling1D:           "UpSampling1D",
	KindUpSampling2D:           "UpSampling2D",
	KindUpSampling3D:           "UpSampling3D",
	KindSimpleRNN:              "SimpleRNN",
	KindLSTM:                   "LSTM",
	KindGRU:                    "GRU",
	KindDropout:                "Dropout",
	KindSpatialDropout1D:       "SpatialDropout1D",
	KindSpatialDropout2D:       "SpatialDropout2D",
}

var kindsByClassName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the Keras class name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// KindFromClassName maps a Keras class name to its Kind. ok is false
// for class names outside the supported set.
func KindFromClassName(name string) (Kind, bool) {
	k, ok := kindsByClassName[name]
	return k, ok
}
