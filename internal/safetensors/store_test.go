package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"testing"
)

type rawTensor struct {
	dtype string
	shape []int64
	data  []byte
}

func buildSafetensors(t *testing.T, tensors map[string]rawTensor) []byte {
	t.Helper()

	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}

	sort.Strings(names)

	header := map[string]storeHeaderEntry{}

	var raw []byte

	for _, name := range names {
		tensor := tensors[name]
		start := len(raw)
		raw = append(raw, tensor.data...)
		header[name] = storeHeaderEntry{DType: tensor.dtype, Shape: tensor.shape, Offsets: [2]int{start, len(raw)}}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}

	out := make([]byte, 8, 8+len(headerJSON)+len(raw))
	binary.LittleEndian.PutUint64(out, uint64(len(headerJSON)))
	out = append(out, headerJSON...)

	return append(out, raw...)
}

func int32Bytes(vals []int32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}

	return buf
}

func int64Bytes(vals []int64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}

	return buf
}

func TestStore_TensorByName_I32(t *testing.T) {
	blob := buildSafetensors(t, map[string]rawTensor{
		"alpha": {dtype: "I32", shape: []int64{2}, data: int32Bytes([]int32{1, 2})},
		"beta":  {dtype: "I32", shape: []int64{1, 3}, data: int32Bytes([]int32{3, -4, 5})},
	})

	store, err := OpenStoreFromBytes(blob)
	if err != nil {
		t.Fatalf("OpenStoreFromBytes: %v", err)
	}
	defer store.Close()

	names := store.Names()
	if strings.Join(names, "|") != "alpha|beta" {
		t.Fatalf("Names() = %v; want [alpha beta]", names)
	}

	tensor, err := store.Tensor("beta")
	if err != nil {
		t.Fatalf("Tensor(beta): %v", err)
	}

	if !equalShape(tensor.Shape, []int64{1, 3}) {
		t.Fatalf("beta shape = %v; want [1 3]", tensor.Shape)
	}

	if len(tensor.Data) != 3 || tensor.Data[0] != 3 || tensor.Data[1] != -4 || tensor.Data[2] != 5 {
		t.Fatalf("beta data = %v; want [3 -4 5]", tensor.Data)
	}
}

func TestStore_DTypeConversion_I64AndU8(t *testing.T) {
	blob := buildSafetensors(t, map[string]rawTensor{
		"long":  {dtype: "I64", shape: []int64{3}, data: int64Bytes([]int64{7, -1, 1 << 20})},
		"bytes": {dtype: "u8", shape: []int64{2}, data: []byte{0, 255}},
	})

	store, err := OpenStoreFromBytes(blob)
	if err != nil {
		t.Fatalf("OpenStoreFromBytes: %v", err)
	}
	defer store.Close()

	long, err := store.Tensor("long")
	if err != nil {
		t.Fatalf("Tensor(long): %v", err)
	}

	if long.Data[0] != 7 || long.Data[1] != -1 || long.Data[2] != 1<<20 {
		t.Fatalf("long data = %v", long.Data)
	}

	b, err := store.Tensor("bytes")
	if err != nil {
		t.Fatalf("Tensor(bytes): %v", err)
	}

	if b.Data[0] != 0 || b.Data[1] != 255 {
		t.Fatalf("bytes data = %v", b.Data)
	}
}

func TestStore_I64OverflowFails(t *testing.T) {
	blob := buildSafetensors(t, map[string]rawTensor{
		"big": {dtype: "I64", shape: []int64{1}, data: int64Bytes([]int64{1 << 40})},
	})

	store, err := OpenStoreFromBytes(blob)
	if err != nil {
		t.Fatalf("OpenStoreFromBytes: %v", err)
	}
	defer store.Close()

	if _, err := store.Tensor("big"); err == nil {
		t.Fatal("Tensor should fail when an I64 value overflows int32")
	}
}

func TestStore_TensorWithShapeAndMissingDiagnostics(t *testing.T) {
	blob := buildSafetensors(t, map[string]rawTensor{
		"alpha": {dtype: "I32", shape: []int64{2}, data: int32Bytes([]int32{1, 2})},
	})

	store, err := OpenStoreFromBytes(blob)
	if err != nil {
		t.Fatalf("OpenStoreFromBytes: %v", err)
	}
	defer store.Close()

	if _, err := store.TensorWithShape("alpha", []int64{2}); err != nil {
		t.Fatalf("TensorWithShape matching shape: %v", err)
	}

	if _, err := store.TensorWithShape("alpha", []int64{1, 2}); err == nil {
		t.Fatal("TensorWithShape should fail on shape mismatch")
	}

	_, err = store.Tensor("missing")
	if err == nil {
		t.Fatal("Tensor(missing) should fail")
	}

	if !strings.Contains(err.Error(), "available: alpha") {
		t.Fatalf("missing tensor error should include available names, got: %v", err)
	}
}

func TestStore_CorruptionAndUnsupportedDTypeErrors(t *testing.T) {
	tests := []struct {
		name string
		data func() []byte
	}{
		{
			name: "unsupported dtype",
			data: func() []byte {
				return buildSafetensors(t, map[string]rawTensor{
					"x": {dtype: "F32", shape: []int64{1}, data: make([]byte, 4)},
				})
			},
		},
		{
			name: "invalid offsets",
			data: func() []byte { return rawHeader(`{"bad":{"dtype":"I32","shape":[1],"data_offsets":[4,2]}}`, 4) },
		},
		{
			name: "data past end",
			data: func() []byte { return rawHeader(`{"x":{"dtype":"I32","shape":[2],"data_offsets":[0,8]}}`, 4) },
		},
		{
			name: "offsets near max int",
			data: func() []byte {
				off := strconv.Itoa(math.MaxInt - 10)
				return rawHeader(`{"x":{"dtype":"I32","shape":[0],"data_offsets":[`+off+`,`+off+`]}}`, 4)
			},
		},
		{
			name: "short data",
			data: func() []byte { return rawHeader(`{"x":{"dtype":"I32","shape":[2],"data_offsets":[0,4]}}`, 4) },
		},
		{
			name: "header too long",
			data: func() []byte {
				b := rawHeader(`{}`, 0)
				binary.LittleEndian.PutUint64(b, 1<<40)
				return b
			},
		},
		{
			name: "file too short",
			data: func() []byte { return []byte{1, 2, 3} },
		},
		{
			name: "no tensors",
			data: func() []byte { return rawHeader(`{"__metadata__":{"a":"b"}}`, 0) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenStoreFromBytes(tt.data()); err == nil {
				t.Fatal("OpenStoreFromBytes should fail")
			}
		})
	}
}

func rawHeader(header string, dataBytes int) []byte {
	data := make([]byte, 8+len(header)+dataBytes)
	binary.LittleEndian.PutUint64(data[:8], uint64(len(header)))
	copy(data[8:], header)

	return data
}

func TestStore_ReadAll(t *testing.T) {
	blob := buildSafetensors(t, map[string]rawTensor{
		"a": {dtype: "I32", shape: []int64{1}, data: int32Bytes([]int32{1})},
		"b": {dtype: "I32", shape: []int64{1}, data: int32Bytes([]int32{2})},
	})

	store, err := OpenStoreFromBytes(blob)
	if err != nil {
		t.Fatalf("OpenStoreFromBytes: %v", err)
	}
	defer store.Close()

	all, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if len(all) != 2 || all["b"].Data[0] != 2 {
		t.Fatalf("ReadAll = %v", all)
	}
}
