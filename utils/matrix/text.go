// Package matrix reads and writes small dense matrices stored as whitespace delimited text, the
// format used for camera poses and intrinsics in a scan folder.
package matrix

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// ParseDense reads rows of whitespace separated numbers. Blank lines and lines starting with '#'
// are skipped. Every row must have the same number of columns.
func ParseDense(r io.Reader) (*mat.Dense, error) {
	var data []float64
	rows, cols := 0, 0
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if cols == 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, errors.Errorf("line %d has %d columns, expected %d", line, len(fields), cols)
		}
		for _, field := range fields {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			data = append(data, value)
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, errors.New("matrix is empty")
	}
	return mat.NewDense(rows, cols, data), nil
}

// ReadDenseFile parses the matrix stored at path.
func ReadDenseFile(path string) (*mat.Dense, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	m, err := ParseDense(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing matrix %q", path)
	}
	return m, nil
}

// WriteDense writes m one row per line with space separated values.
func WriteDense(w io.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		fields := make([]string, cols)
		for j := 0; j < cols; j++ {
			fields[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return nil
}
