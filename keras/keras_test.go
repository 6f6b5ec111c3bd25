// Copyright 2026 Lumen ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package keras_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumen-ml/lumen/internal/serialization"
	"github.com/lumen-ml/lumen/keras"
	"github.com/lumen-ml/lumen/relay"
)

const mlpJSON = `{
  "class_name": "Sequential",
  "backend": "tensorflow",
  "config": {
    "name": "mlp",
    "layers": [
      {"class_name": "Dense",
       "config": {"name": "dense_1", "units": 3, "batch_input_shape": [null, 2], "activation": "relu"}},
      {"class_name": "Dense",
       "config": {"name": "dense_2", "units": 1, "activation": "sigmoid"}}
    ]
  }
}`

func TestLoadAndConvert(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	if err := os.WriteFile(modelPath, []byte(mlpJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	weightsPath := filepath.Join(dir, "model.safetensors")
	weights := map[string]serialization.NamedTensor{
		"dense_1/0": {Shape: []int{2, 3}, Data: []float32{1, 2, 3, 4, 5, 6}},
		"dense_1/1": {Shape: []int{3}, Data: []float32{0, 0, 0}},
		"dense_2/0": {Shape: []int{3, 1}, Data: []float32{1, 1, 1}},
		"dense_2/1": {Shape: []int{1}, Data: []float32{0.5}},
	}
	if err := serialization.WriteFile(weightsPath, weights, nil); err != nil {
		t.Fatal(err)
	}

	model, err := keras.LoadFile(modelPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := keras.LoadWeightsFile(model, weightsPath); err != nil {
		t.Fatalf("LoadWeightsFile failed: %v", err)
	}

	fn, params, err := keras.Convert(model, nil)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if len(fn.Params) != 1 || fn.Params[0].Name != "dense_1_input" {
		t.Errorf("function params = %v, want the synthesized input", fn.Params)
	}
	if len(params) != 4 {
		t.Errorf("expected 4 extracted parameters, got %d", len(params))
	}

	text := relay.PrintFunction(fn)
	for _, op := range []string{"nn.dense", "nn.bias_add", "nn.relu", "sigmoid"} {
		if !strings.Contains(text, op) {
			t.Errorf("printed function missing %s:\n%s", op, text)
		}
	}
}

func TestConvertMissingWeights(t *testing.T) {
	model, err := keras.Load([]byte(mlpJSON))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, _, err := keras.Convert(model, nil); err == nil {
		t.Error("conversion without weights should fail")
	}
}
