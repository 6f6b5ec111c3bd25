// Copyright 2026 Lumen ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package keras loads Keras model architecture JSON and converts the
// layer graph into a relay function plus its extracted float32
// parameters.
//
// # Supported Layers
//
//   - Core: InputLayer, Dense, Activation, Flatten, Reshape, Dropout
//   - Convolution: Conv2D, Conv2DTranspose, DepthwiseConv2D, SeparableConv2D
//   - Pooling: MaxPooling2D, AveragePooling2D and their global variants
//   - Activations: ReLU, LeakyReLU, PReLU, ELU, ThresholdedReLU
//   - Merge: Add, Subtract, Multiply, Average, Maximum, Concatenate
//   - Normalization: BatchNormalization
//   - Geometry: ZeroPadding2D, Cropping2D, UpSampling2D
//   - Recurrent: SimpleRNN, LSTM, GRU (unrolled)
//
// # Example Usage
//
//	model, err := keras.LoadFile("model.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := keras.LoadWeightsFile(model, "model.safetensors"); err != nil {
//	    log.Fatal(err)
//	}
//
//	fn, params, err := keras.Convert(model, map[string][]int{
//	    "input_1": {1, 224, 224, 3},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(relay.PrintFunction(fn))
package keras

import (
	"fmt"

	"github.com/lumen-ml/lumen/internal/frontend"
	internalkeras "github.com/lumen-ml/lumen/internal/keras"
	"github.com/lumen-ml/lumen/internal/serialization"
	internaltensor "github.com/lumen-ml/lumen/internal/tensor"
	"github.com/lumen-ml/lumen/relay"
	"github.com/lumen-ml/lumen/tensor"
)

// Model is a parsed layer graph ready for conversion.
type Model = internalkeras.Model

// Layer is one layer descriptor of a parsed model.
type Layer = internalkeras.Layer

// Load parses model architecture JSON, the content of a Keras
// model.to_json() export. Both Functional ("Model") and Sequential
// container formats are accepted.
func Load(data []byte) (*Model, error) {
	return internalkeras.Load(data)
}

// LoadFile reads and parses a model architecture JSON file.
func LoadFile(path string) (*Model, error) {
	return internalkeras.LoadFile(path)
}

// LoadWeightsFile attaches weights from a SafeTensors file to the
// model's layers. Tensor names follow the "<layer>/<index>" convention
// with indexes ordering the arrays within a layer (kernel before bias).
func LoadWeightsFile(m *Model, path string) error {
	tensors, _, err := serialization.ReadFile(path)
	if err != nil {
		return err
	}
	weights := make(map[string]*internaltensor.Array, len(tensors))
	for name, t := range tensors {
		arr, err := internaltensor.FromSlice(t.Shape, t.Data)
		if err != nil {
			return fmt.Errorf("weight %q: %w", name, err)
		}
		weights[name] = arr
	}
	return m.AttachWeights(weights)
}

// Convert lowers the model's layer graph into a relay function plus
// the map of extracted parameter arrays. shapeDict overrides the
// declared shape of input layers by name, replicating the frontend
// convention of passing concrete input shapes at conversion time.
//
// Conversion is all-or-nothing: an unsupported layer or a shape the
// lowering rules cannot satisfy aborts with an error and no partial
// output.
func Convert(m *Model, shapeDict map[string][]int) (*relay.Function, map[string]*tensor.Array, error) {
	return frontend.FromModel(m, shapeDict)
}
