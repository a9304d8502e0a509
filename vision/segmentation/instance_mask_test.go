package segmentation

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"
)

func writeNpyFixture(t *testing.T, name string, shape []int, backing interface{}) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), name)
	f, err := os.Create(fn)
	test.That(t, err, test.ShouldBeNil)
	arr := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
	test.That(t, arr.WriteNpy(f), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
	return fn
}

func TestLoadInstanceMaskBool(t *testing.T) {
	fn := writeNpyFixture(t, "scene_masks.npy", []int{3, 2}, []bool{
		true, false,
		false, false,
		true, true,
	})
	mask, err := LoadInstanceMask(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.Points(), test.ShouldEqual, 3)
	test.That(t, mask.Instances(), test.ShouldEqual, 2)
	test.That(t, mask.At(0, 0), test.ShouldBeTrue)
	test.That(t, mask.At(1, 0), test.ShouldBeFalse)
	test.That(t, mask.At(2, 1), test.ShouldBeTrue)
	test.That(t, mask.InstanceSize(0), test.ShouldEqual, 2)
	test.That(t, mask.InstanceSize(1), test.ShouldEqual, 1)
}

func TestLoadInstanceMaskFloat(t *testing.T) {
	fn := writeNpyFixture(t, "scene_masks.npy", []int{2, 2}, []float32{0, 1, 0.5, 0})
	mask, err := LoadInstanceMask(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.At(0, 0), test.ShouldBeFalse)
	test.That(t, mask.At(0, 1), test.ShouldBeTrue)
	test.That(t, mask.At(1, 0), test.ShouldBeTrue)

	fn = writeNpyFixture(t, "flat.npy", []int{4}, []float32{0, 1, 0, 1})
	_, err = LoadInstanceMask(fn)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadInstanceMask(filepath.Join(t.TempDir(), "missing.npy"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadFeatures(t *testing.T) {
	fn := writeNpyFixture(t, "scene_openmask3d_features.npy", []int{2, 3}, []float32{
		0.25, -1, 3.5,
		0, 0.125, 2,
	})
	features, err := LoadFeatures(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, features, test.ShouldResemble, [][]float64{{0.25, -1, 3.5}, {0, 0.125, 2}})

	// float64 embeddings keep digits a float32 would round away
	fn = writeNpyFixture(t, "features_f8.npy", []int{1, 2}, []float64{0.1, 1.0000000001})
	features, err = LoadFeatures(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, features, test.ShouldResemble, [][]float64{{0.1, 1.0000000001}})
}

func TestLoadTopK(t *testing.T) {
	fn := writeNpyFixture(t, "topk_indices.npy", []int{2, 3}, []int64{
		4, 0, 17,
		123456789012, 2, 3,
	})
	topK, err := LoadTopK(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, topK, test.ShouldResemble, [][]int{{4, 0, 17}, {123456789012, 2, 3}})

	fn = writeNpyFixture(t, "topk_small.npy", []int{1, 2}, []int32{7, 9})
	topK, err = LoadTopK(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, topK, test.ShouldResemble, [][]int{{7, 9}})

	fn = writeNpyFixture(t, "topk_bad.npy", []int{1, 2}, []float64{1.5, 2})
	_, err = LoadTopK(fn)
	test.That(t, err, test.ShouldNotBeNil)

	fn = writeNpyFixture(t, "topk_negative.npy", []int{1, 1}, []int64{-1})
	_, err = LoadTopK(fn)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewInstanceMaskFromRows(t *testing.T) {
	mask, err := NewInstanceMaskFromRows([][]bool{{true, false}, {false, true}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.At(1, 1), test.ShouldBeTrue)
	test.That(t, mask.At(1, 0), test.ShouldBeFalse)

	_, err = NewInstanceMaskFromRows([][]bool{{true, false}, {false}})
	test.That(t, err, test.ShouldNotBeNil)

	empty, err := NewInstanceMaskFromRows(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.Points(), test.ShouldEqual, 0)
}
