package loader

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/hoard/internal/core/domain"
)

const (
	headerLenSize = 8
	// maxHeaderLen guards against absurd header lengths in corrupt files.
	maxHeaderLen = 100 << 20
	metadataKey  = "__metadata__"
)

// Tensor describes one tensor of a safetensors file.
type Tensor struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Tensors is the handle of a safetensors artifact.
type Tensors struct {
	Path     string
	Metadata map[string]string
	Tensors  map[string]Tensor
	// Data is the byte buffer following the header. Tensor offsets index into it.
	Data []byte
}

// Bytes returns the raw bytes of the named tensor.
func (t *Tensors) Bytes(name string) ([]byte, bool) {
	info, ok := t.Tensors[name]
	if !ok {
		return nil, false
	}
	return t.Data[info.DataOffsets[0]:info.DataOffsets[1]], true
}

// Safetensors loads files with an 8-byte little-endian header length followed by a JSON header.
type Safetensors struct{}

// Load reads and validates the file.
func (Safetensors) Load(ctx context.Context, path string) (domain.Artifact, error) {
	raw, err := readFile(ctx, path)
	if err != nil {
		return domain.Artifact{}, err
	}

	tensors, err := parseSafetensors(path, raw)
	if err != nil {
		return domain.Artifact{}, err
	}
	return domain.Artifact{
		Handle: tensors,
		Size:   int64(len(raw)),
		Digest: xxhash.Sum64(raw),
	}, nil
}

func parseSafetensors(path string, raw []byte) (*Tensors, error) {
	if len(raw) < headerLenSize {
		return nil, corrupt(path, "file shorter than header length")
	}
	n := binary.LittleEndian.Uint64(raw[:headerLenSize])
	if n == 0 || n > maxHeaderLen || n > uint64(len(raw)-headerLenSize) {
		return nil, corrupt(path, fmt.Sprintf("header length %d out of range", n))
	}
	header := raw[headerLenSize : headerLenSize+n]
	data := raw[headerLenSize+n:]

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(header, &fields); err != nil {
		return nil, corrupt(path, "header is not a JSON object")
	}

	t := &Tensors{Path: path, Tensors: make(map[string]Tensor, len(fields)), Data: data}
	for name, value := range fields {
		if name == metadataKey {
			if err := json.Unmarshal(value, &t.Metadata); err != nil {
				return nil, corrupt(path, "metadata is not a string map")
			}
			continue
		}
		var info Tensor
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, corrupt(path, fmt.Sprintf("tensor %q has a malformed entry", name))
		}
		begin, end := info.DataOffsets[0], info.DataOffsets[1]
		if info.DType == "" || begin < 0 || end < begin || end > int64(len(data)) {
			return nil, corrupt(path, fmt.Sprintf("tensor %q has invalid offsets [%d, %d]", name, begin, end))
		}
		t.Tensors[name] = info
	}
	return t, nil
}
