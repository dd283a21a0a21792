package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/example/go-deepqa/internal/instance"
	"github.com/example/go-deepqa/internal/safetensors"
	"github.com/sourcegraph/conc/iter"
)

// ErrInconsistentBatch is returned when instances of one dataset pad to
// different array names or shapes.
var ErrInconsistentBatch = errors.New("instances pad to inconsistent arrays")

// IndexedDataset is a collection of indexed instances.
type IndexedDataset struct {
	Instances []instance.IndexedInstance
}

func (d *IndexedDataset) Len() int { return len(d.Instances) }

// PaddingLengths returns the per-key maximum over all instances.
func (d *IndexedDataset) PaddingLengths() instance.PaddingLengths {
	lengths := instance.PaddingLengths{}
	for _, inst := range d.Instances {
		lengths = lengths.Merge(inst.PaddingLengths())
	}

	return lengths
}

// Pad pads every instance to the dataset's padding lengths, with any positive
// value in fixed replacing the inferred one, and stacks the results.
func (d *IndexedDataset) Pad(fixed instance.PaddingLengths, truncation instance.Truncation, workers int) (*Batch, error) {
	if len(d.Instances) == 0 {
		return nil, ErrEmptyDataset
	}

	lengths := d.PaddingLengths().Override(fixed)

	mapper := iter.Mapper[instance.IndexedInstance, instance.Padded]{MaxGoroutines: clampWorkers(workers)}
	padded, err := mapper.MapErr(d.Instances, func(inst *instance.IndexedInstance) (instance.Padded, error) {
		return (*inst).Pad(lengths, truncation)
	})
	if err != nil {
		return nil, fmt.Errorf("pad dataset: %w", err)
	}

	inputs, err := stack(padded, func(p instance.Padded) map[string]instance.Array { return p.Inputs })
	if err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}

	outputs, err := stack(padded, func(p instance.Padded) map[string]instance.Array { return p.Outputs })
	if err != nil {
		return nil, fmt.Errorf("outputs: %w", err)
	}

	return &Batch{
		Size:    len(padded),
		Lengths: lengths,
		Inputs:  inputs,
		Outputs: outputs,
	}, nil
}

// stack concatenates the arrays named in every instance along a new leading
// batch dimension.
func stack(padded []instance.Padded, arrays func(instance.Padded) map[string]instance.Array) (map[string]instance.Array, error) {
	first := arrays(padded[0])
	out := make(map[string]instance.Array, len(first))

	for name, a := range first {
		shape := append([]int{len(padded)}, a.Shape...)
		data := make([]int, 0, len(padded)*len(a.Data))

		for i, p := range padded {
			cur, ok := arrays(p)[name]
			if !ok {
				return nil, fmt.Errorf("%w: instance %d has no %q", ErrInconsistentBatch, i, name)
			}
			if !sameShape(cur.Shape, a.Shape) {
				return nil, fmt.Errorf("%w: instance %d %q shape %v, want %v", ErrInconsistentBatch, i, name, cur.Shape, a.Shape)
			}
			data = append(data, cur.Data...)
		}

		out[name] = instance.Array{Shape: shape, Data: data}
	}

	for i, p := range padded {
		if n := len(arrays(p)); n != len(first) {
			return nil, fmt.Errorf("%w: instance %d has %d arrays, want %d", ErrInconsistentBatch, i, n, len(first))
		}
	}

	return out, nil
}

func sameShape(a, b []int) bool {
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

// Batch is a padded dataset: every array has a leading batch dimension.
type Batch struct {
	Size    int
	Lengths instance.PaddingLengths
	Inputs  map[string]instance.Array
	Outputs map[string]instance.Array
}

// Tensors returns every input and output array as an int32 tensor, sorted by
// name. Output names are prefixed with "output." when they collide with an
// input name.
func (b *Batch) Tensors() ([]safetensors.Tensor, error) {
	tensors := make([]safetensors.Tensor, 0, len(b.Inputs)+len(b.Outputs))

	add := func(name string, a instance.Array) error {
		t, err := toTensor(name, a)
		if err != nil {
			return err
		}
		tensors = append(tensors, t)
		return nil
	}

	for name, a := range b.Inputs {
		if err := add(name, a); err != nil {
			return nil, err
		}
	}

	for name, a := range b.Outputs {
		if _, clash := b.Inputs[name]; clash {
			name = "output." + name
		}
		if err := add(name, a); err != nil {
			return nil, err
		}
	}

	sort.Slice(tensors, func(i, j int) bool { return tensors[i].Name < tensors[j].Name })

	return tensors, nil
}

func toTensor(name string, a instance.Array) (safetensors.Tensor, error) {
	shape := make([]int64, len(a.Shape))
	for i, d := range a.Shape {
		shape[i] = int64(d)
	}

	data := make([]int32, len(a.Data))
	for i, v := range a.Data {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return safetensors.Tensor{}, fmt.Errorf("%s: value %d overflows int32", name, v)
		}
		data[i] = int32(v)
	}

	return safetensors.Tensor{Name: name, Shape: shape, Data: data}, nil
}

// Metadata describes the batch for the safetensors header: its size and the
// padding lengths used.
func (b *Batch) Metadata() map[string]string {
	meta := map[string]string{"batch_size": strconv.Itoa(b.Size)}
	for k, v := range b.Lengths {
		meta[k] = strconv.Itoa(v)
	}

	return meta
}

// WriteFile stores the batch as a .safetensors file.
func (b *Batch) WriteFile(path string) error {
	tensors, err := b.Tensors()
	if err != nil {
		return err
	}

	return safetensors.WriteFile(path, tensors, b.Metadata())
}
