package keras

import "testing"

func shapeEq(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConvOutputShape(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		attrs *ConvAttrs
		in    []int
		want  []int
	}{
		{
			name: "same padding keeps extent",
			kind: KindConv2D,
			attrs: &ConvAttrs{Filters: 4, KernelSize: [2]int{3, 3},
				Strides: [2]int{1, 1}, DilationRate: [2]int{1, 1}, Padding: "same"},
			in:   []int{0, 8, 8, 3},
			want: []int{0, 8, 8, 4},
		},
		{
			name: "valid padding shrinks",
			kind: KindConv2D,
			attrs: &ConvAttrs{Filters: 4, KernelSize: [2]int{3, 3},
				Strides: [2]int{1, 1}, DilationRate: [2]int{1, 1}, Padding: "valid"},
			in:   []int{0, 8, 8, 3},
			want: []int{0, 6, 6, 4},
		},
		{
			name: "strided same rounds up",
			kind: KindConv2D,
			attrs: &ConvAttrs{Filters: 2, KernelSize: [2]int{3, 3},
				Strides: [2]int{2, 2}, DilationRate: [2]int{1, 1}, Padding: "same"},
			in:   []int{0, 7, 7, 3},
			want: []int{0, 4, 4, 2},
		},
		{
			name: "dilation widens the effective kernel",
			kind: KindConv2D,
			attrs: &ConvAttrs{Filters: 2, KernelSize: [2]int{3, 3},
				Strides: [2]int{1, 1}, DilationRate: [2]int{2, 2}, Padding: "valid"},
			in:   []int{0, 9, 9, 3},
			want: []int{0, 5, 5, 2},
		},
		{
			name: "transpose same scales by stride",
			kind: KindConv2DTranspose,
			attrs: &ConvAttrs{Filters: 3, KernelSize: [2]int{3, 3},
				Strides: [2]int{2, 2}, DilationRate: [2]int{1, 1}, Padding: "same"},
			in:   []int{0, 4, 4, 8},
			want: []int{0, 8, 8, 3},
		},
		{
			name: "transpose valid grows by kernel",
			kind: KindConv2DTranspose,
			attrs: &ConvAttrs{Filters: 3, KernelSize: [2]int{3, 3},
				Strides: [2]int{2, 2}, DilationRate: [2]int{1, 1}, Padding: "valid"},
			in:   []int{0, 4, 4, 8},
			want: []int{0, 9, 9, 3},
		},
		{
			name: "depthwise multiplies channels",
			kind: KindDepthwiseConv2D,
			attrs: &ConvAttrs{DepthMultiplier: 2, KernelSize: [2]int{3, 3},
				Strides: [2]int{1, 1}, DilationRate: [2]int{1, 1}, Padding: "same"},
			in:   []int{0, 8, 8, 3},
			want: []int{0, 8, 8, 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layer := &Layer{Kind: tt.kind, Attrs: tt.attrs}
			got, err := convOutputShape(layer, tt.in)
			if err != nil {
				t.Fatalf("convOutputShape failed: %v", err)
			}
			if !shapeEq(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutputShapePerKind(t *testing.T) {
	tests := []struct {
		name  string
		layer *Layer
		in    []int
		want  []int
	}{
		{"dense", &Layer{Kind: KindDense, Attrs: &DenseAttrs{Units: 16}}, []int{0, 8}, []int{0, 16}},
		{"flatten", &Layer{Kind: KindFlatten}, []int{0, 4, 4, 3}, []int{0, 48}},
		{"flatten unknown", &Layer{Kind: KindFlatten}, []int{0, 0, 4, 3}, []int{0, 0}},
		{
			"max pool valid",
			&Layer{Kind: KindMaxPooling2D, Attrs: &PoolAttrs{PoolSize: [2]int{2, 2}, Strides: [2]int{2, 2}, Padding: "valid"}},
			[]int{0, 8, 8, 3}, []int{0, 4, 4, 3},
		},
		{"global pool", &Layer{Kind: KindGlobalAveragePooling2D}, []int{0, 8, 8, 3}, []int{0, 3}},
		{
			"zero padding",
			&Layer{Kind: KindZeroPadding2D, Attrs: &ZeroPadding2DAttrs{Top: 1, Bottom: 1, Left: 2, Right: 2}},
			[]int{0, 8, 8, 3}, []int{0, 10, 12, 3},
		},
		{
			"cropping",
			&Layer{Kind: KindCropping2D, Attrs: &Cropping2DAttrs{Top: 1, Bottom: 1, Left: 1, Right: 1}},
			[]int{0, 8, 8, 3}, []int{0, 6, 6, 3},
		},
		{
			"upsampling",
			&Layer{Kind: KindUpSampling2D, Attrs: &UpSamplingAttrs{Size: []int{2, 2}}},
			[]int{0, 4, 4, 3}, []int{0, 8, 8, 3},
		},
		{
			"reshape",
			&Layer{Kind: KindReshape, Attrs: &ReshapeAttrs{TargetShape: []int{16, 3}}},
			[]int{0, 48}, []int{0, 16, 3},
		},
		{"lstm", &Layer{Kind: KindLSTM, Attrs: &RecurrentAttrs{Units: 32}}, []int{0, 5, 8}, []int{0, 32}},
		{"batchnorm", &Layer{Kind: KindBatchNormalization, Attrs: &BatchNormAttrs{}}, []int{0, 8, 8, 3}, []int{0, 8, 8, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outputShape(tt.layer, [][]int{tt.in})
			if err != nil {
				t.Fatalf("outputShape failed: %v", err)
			}
			if !shapeEq(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConcatenateOutputShape(t *testing.T) {
	layer := &Layer{Kind: KindConcatenate}
	got, err := outputShape(layer, [][]int{{0, 4, 4, 3}, {0, 4, 4, 5}})
	if err != nil {
		t.Fatalf("outputShape failed: %v", err)
	}
	if !shapeEq(got, []int{0, 4, 4, 8}) {
		t.Errorf("got %v, want [0 4 4 8]", got)
	}

	if _, err := outputShape(layer, [][]int{{0, 4, 4, 3}, {0, 4}}); err == nil {
		t.Error("rank mismatch accepted")
	}
}

func TestFillShape(t *testing.T) {
	got := FillShape([]int{0, 5, 0})
	if !shapeEq(got, []int{1, 5, 1}) {
		t.Errorf("FillShape = %v, want [1 5 1]", got)
	}
}
