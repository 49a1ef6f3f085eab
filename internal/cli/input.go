package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qrv0/sparrow/internal/fileformat"
	"github.com/qrv0/sparrow/internal/matrix"
	"github.com/qrv0/sparrow/internal/sparse"
)

// cooJSON is the text interchange form of a COO matrix.
type cooJSON struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	RowInd []int32   `json:"row_ind"`
	ColInd []int32   `json:"col_ind"`
	Val    []float64 `json:"val"`
}

// denseJSON is a row-major dense matrix.
type denseJSON struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func isContainer(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".spmx")
}

// dtypeFor returns the --dtype flag, or the stored dtype of a container
// when the flag was not set.
func dtypeFor(cmd *cobra.Command, path string) (string, error) {
	dtype, _ := cmd.Flags().GetString("dtype")
	if cmd.Flags().Changed("dtype") || !isContainer(path) {
		return dtype, nil
	}
	return storedDType(path)
}

func storedDType(path string) (string, error) {
	r, err := fileformat.Open(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	m, err := r.Meta()
	if err != nil {
		return "", err
	}
	return m.DType, nil
}

func dtypeName[T sparse.Float]() string { return fileformat.DType[T]() }

func loadCOO[T sparse.Float](path string) (*matrix.COO[T], error) {
	if isContainer(path) {
		return fileformat.ReadCOO[T](path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var in cooJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	coo := &matrix.COO[T]{Rows: in.Rows, Cols: in.Cols, RowInd: in.RowInd, ColInd: in.ColInd, Val: convert[T](in.Val)}
	if err := coo.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return coo, nil
}

func loadDense[T sparse.Float](path string) (rows, cols int, colMajor []T, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, nil, err
	}
	var in denseJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return 0, 0, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if in.Rows < 0 || in.Cols < 0 || len(in.Data) != in.Rows*in.Cols {
		return 0, 0, nil, fmt.Errorf("%s: %dx%d matrix with %d values", path, in.Rows, in.Cols, len(in.Data))
	}
	out := make([]T, len(in.Data))
	for i := 0; i < in.Rows; i++ {
		for j := 0; j < in.Cols; j++ {
			out[j*in.Rows+i] = T(in.Data[i*in.Cols+j])
		}
	}
	return in.Rows, in.Cols, out, nil
}

func convert[T sparse.Float](v []float64) []T {
	out := make([]T, len(v))
	for i, x := range v {
		out[i] = T(x)
	}
	return out
}

func widen[T sparse.Float](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func unsupportedDType(dtype string) error {
	return WrapExitError(ExitCommandError, "dtype", fmt.Errorf("unsupported element type %q (float32|float64)", dtype))
}
