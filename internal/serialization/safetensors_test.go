package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	tensors := map[string]NamedTensor{
		"dense_1/0": {Shape: []int{2, 3}, Data: []float32{1, 2, 3, 4, 5, 6}},
		"dense_1/1": {Shape: []int{3}, Data: []float32{0.1, 0.2, 0.3}},
		"conv/0":    {Shape: []int{1, 1, 1, 2}, Data: []float32{-1, 1}},
	}
	metadata := map[string]string{"format": "lumen"}

	var buf bytes.Buffer
	if err := Write(&buf, tensors, metadata); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, gotMeta, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if gotMeta["format"] != "lumen" {
		t.Errorf("metadata = %v, want format=lumen", gotMeta)
	}
	if len(got) != len(tensors) {
		t.Fatalf("expected %d tensors, got %d", len(tensors), len(got))
	}
	for name, want := range tensors {
		g, ok := got[name]
		if !ok {
			t.Fatalf("tensor %q missing after round trip", name)
		}
		if len(g.Shape) != len(want.Shape) {
			t.Fatalf("tensor %q shape = %v, want %v", name, g.Shape, want.Shape)
		}
		for i := range want.Shape {
			if g.Shape[i] != want.Shape[i] {
				t.Fatalf("tensor %q shape = %v, want %v", name, g.Shape, want.Shape)
			}
		}
		for i := range want.Data {
			if g.Data[i] != want.Data[i] {
				t.Fatalf("tensor %q data[%d] = %v, want %v", name, i, g.Data[i], want.Data[i])
			}
		}
	}
}

func TestReadRejectsUnsupportedDType(t *testing.T) {
	header := map[string]TensorInfo{
		"w": {DType: "F16", Shape: []int{2}, DataOffsets: [2]int64{0, 4}},
	}
	buf := encodeFile(t, header, make([]byte, 4))

	_, _, err := Read(bytes.NewReader(buf))
	if !errors.Is(err, ErrUnsupportedDType) {
		t.Errorf("error = %v, want ErrUnsupportedDType", err)
	}
}

func TestReadRejectsOutOfBoundsOffsets(t *testing.T) {
	header := map[string]TensorInfo{
		"w": {DType: "F32", Shape: []int{2}, DataOffsets: [2]int64{0, 8}},
	}
	buf := encodeFile(t, header, make([]byte, 4)) // data section too short

	_, _, err := Read(bytes.NewReader(buf))
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("error = %v, want ErrOutOfBounds", err)
	}
}

func TestReadRejectsShapeSizeMismatch(t *testing.T) {
	header := map[string]TensorInfo{
		"w": {DType: "F32", Shape: []int{3}, DataOffsets: [2]int64{0, 8}},
	}
	buf := encodeFile(t, header, make([]byte, 8))

	_, _, err := Read(bytes.NewReader(buf))
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("error = %v, want ErrSizeMismatch", err)
	}
}

func TestReadRejectsOversizedHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint64(math.MaxUint32)); err != nil {
		t.Fatal(err)
	}
	_, _, err := Read(&buf)
	if !errors.Is(err, ErrHeaderTooLarge) {
		t.Errorf("error = %v, want ErrHeaderTooLarge", err)
	}
}

// encodeFile assembles a raw SafeTensors stream from a header map and
// a data section.
func encodeFile(t *testing.T, header map[string]TensorInfo, data []byte) []byte {
	t.Helper()
	headerJSON, err := json.Marshal(header)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		t.Fatal(err)
	}
	buf.Write(headerJSON)
	buf.Write(data)
	return buf.Bytes()
}
