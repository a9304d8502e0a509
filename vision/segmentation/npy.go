package segmentation

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gorgonia.org/tensor"
)

// npyHeaderStart is the offset of the header text in a version 1.0 numpy file.
const npyHeaderStart = 10

// npyDescrRewrites maps element types the tensor decoder cannot fill to same sized ones it can.
// 8 byte integers are decoded as float64 and bit cast back, booleans are decoded as bytes.
var npyDescrRewrites = []struct {
	from, to string
	bitcast  tensor.Dtype
}{
	{"'<i8'", "'<f8'", tensor.Int64},
	{"'<u8'", "'<f8'", tensor.Uint64},
	{"'|b1'", "'|u1'", tensor.Bool},
	{"'<b1'", "'<u1'", tensor.Bool},
}

// ndarray is a decoded numpy array.
type ndarray struct {
	dense   *tensor.Dense
	bitcast tensor.Dtype
}

// readNpyFile decodes a numpy .npy file.
func readNpyFile(path string) (arr *ndarray, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	arr, err = readNpy(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return arr, nil
}

func readNpy(r io.Reader) (*ndarray, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	arr := &ndarray{dense: &tensor.Dense{}}
	if len(data) >= npyHeaderStart {
		end := npyHeaderStart + int(binary.LittleEndian.Uint16(data[8:npyHeaderStart]))
		if end <= len(data) {
			header := data[npyHeaderStart:end]
			for _, rw := range npyDescrRewrites {
				if i := bytes.Index(header, []byte(rw.from)); i >= 0 {
					copy(header[i:], rw.to)
					arr.bitcast = rw.bitcast
					break
				}
			}
		}
	}
	if err := arr.dense.ReadNpy(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return arr, nil
}

// dims returns the shape of a 2D array.
func (arr *ndarray) dims() (int, int, error) {
	shape := arr.dense.Shape()
	if len(shape) != 2 {
		return 0, 0, errors.Errorf("expected a 2D array, got shape %v", []int(shape))
	}
	return shape[0], shape[1], nil
}

// float64s returns every element in row major order.
func (arr *ndarray) float64s() ([]float64, error) {
	switch arr.dense.Dtype() {
	case tensor.Float64:
		vals := arr.dense.Float64s()
		out := make([]float64, len(vals))
		for i, v := range vals {
			switch arr.bitcast {
			case tensor.Int64:
				out[i] = float64(int64(math.Float64bits(v)))
			case tensor.Uint64:
				out[i] = float64(math.Float64bits(v))
			default:
				out[i] = v
			}
		}
		return out, nil
	case tensor.Float32:
		return convertValues(arr.dense.Float32s()), nil
	case tensor.Int8:
		return convertValues(arr.dense.Int8s()), nil
	case tensor.Int16:
		return convertValues(arr.dense.Int16s()), nil
	case tensor.Int32:
		return convertValues(arr.dense.Int32s()), nil
	case tensor.Uint8:
		return convertValues(arr.dense.Uint8s()), nil
	case tensor.Uint16:
		return convertValues(arr.dense.Uint16s()), nil
	case tensor.Uint32:
		return convertValues(arr.dense.Uint32s()), nil
	default:
		return nil, errors.Errorf("unsupported array element type %v", arr.dense.Dtype())
	}
}

func convertValues[T int8 | int16 | int32 | uint8 | uint16 | uint32 | float32](vals []T) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out
}
