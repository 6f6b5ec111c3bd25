// Package serialization reads and writes weight files in the
// SafeTensors format.
//
// Format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]
//
// The converter traffics exclusively in float32, so only the F32 dtype
// is accepted; files carrying other dtypes are rejected rather than
// silently converted.
package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// maxHeaderSize bounds the JSON header so a corrupted length prefix
// cannot trigger a huge allocation.
const maxHeaderSize = 100 * 1024 * 1024

// TensorInfo describes one tensor entry in the SafeTensors header.
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end] relative to the data section
}

// NamedTensor is one decoded entry of a weight file.
type NamedTensor struct {
	Shape []int
	Data  []float32
}

// Read decodes a SafeTensors stream into named float32 tensors plus
// the file metadata.
func Read(r io.Reader) (map[string]NamedTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawMap); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	var metadata map[string]string
	infos := make(map[string]TensorInfo, len(rawMap))
	for key, value := range rawMap {
		if key == "__metadata__" {
			if err := json.Unmarshal(value, &metadata); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		infos[key] = info
	}

	// The data section is laid out in offset order; read it once and
	// slice tensors out of it.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data section: %w", err)
	}

	tensors := make(map[string]NamedTensor, len(infos))
	for name, info := range infos {
		if info.DType != "F32" {
			return nil, nil, fmt.Errorf("%w: tensor %q has dtype %s", ErrUnsupportedDType, name, info.DType)
		}
		start, end := info.DataOffsets[0], info.DataOffsets[1]
		if start < 0 || end < start {
			return nil, nil, fmt.Errorf("%w: tensor %q offsets [%d, %d]", ErrNegativeOffset, name, start, end)
		}
		if end > int64(len(data)) {
			return nil, nil, fmt.Errorf("%w: tensor %q", ErrOutOfBounds, name)
		}

		count := 1
		for _, d := range info.Shape {
			count *= d
		}
		if int64(count*4) != end-start {
			return nil, nil, fmt.Errorf("%w: tensor %q shape %v, %d bytes", ErrSizeMismatch, name, info.Shape, end-start)
		}

		values := make([]float32, count)
		for i := range values {
			bits := binary.LittleEndian.Uint32(data[start+int64(i*4):])
			values[i] = math.Float32frombits(bits)
		}
		tensors[name] = NamedTensor{Shape: info.Shape, Data: values}
	}
	return tensors, metadata, nil
}

// ReadFile decodes a SafeTensors file.
func ReadFile(path string) (map[string]NamedTensor, map[string]string, error) {
	//nolint:gosec // G304: path comes from user input, expected for weight loading.
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close() // Best effort close
	}()
	return Read(f)
}

// Write encodes named float32 tensors as a SafeTensors stream.
// Tensors are written in alphabetical order by name.
func Write(w io.Writer, tensors map[string]NamedTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]interface{})
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var currentOffset int64
	for _, name := range names {
		t := tensors[name]
		size := int64(len(t.Data) * 4)
		shape := t.Shape
		if shape == nil {
			shape = []int{}
		}
		header[name] = TensorInfo{
			DType:       "F32",
			Shape:       shape,
			DataOffsets: [2]int64{currentOffset, currentOffset + size},
		}
		currentOffset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	buf := make([]byte, 4)
	for _, name := range names {
		for _, v := range tensors[name].Data {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("failed to write tensor %s: %w", name, err)
			}
		}
	}
	return nil
}

// WriteFile encodes tensors into a SafeTensors file.
func WriteFile(path string, tensors map[string]NamedTensor, metadata map[string]string) error {
	//nolint:gosec // G304: path comes from user input, expected for weight saving.
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(f, tensors, metadata); err != nil {
		_ = f.Close() // Best effort close on error
		return err
	}
	return f.Close()
}
