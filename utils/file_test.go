package utils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestCopyDirFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(src, "1.jpeg"), []byte("one"), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(src, "0.jpeg"), []byte("zero"), 0o600), test.ShouldBeNil)
	test.That(t, os.Mkdir(filepath.Join(src, "nested"), 0o700), test.ShouldBeNil)

	copied, err := CopyDirFiles(src, dst, func(name string) string { return ReplaceExt(name, ".jpg") })
	test.That(t, err, test.ShouldBeNil)
	test.That(t, copied, test.ShouldResemble, []string{"0.jpg", "1.jpg"})

	data, err := os.ReadFile(filepath.Join(dst, "1.jpg"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "one")

	_, err = os.Stat(filepath.Join(dst, "nested"))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestCopyFileMissingSource(t *testing.T) {
	err := CopyFile(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "out"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReplaceExt(t *testing.T) {
	test.That(t, ReplaceExt("3.jpeg", ".jpg"), test.ShouldEqual, "3.jpg")
	test.That(t, ReplaceExt("pose", ".txt"), test.ShouldEqual, "pose.txt")
	test.That(t, ReplaceExt("a.b.png", ""), test.ShouldEqual, "a.b")
}
