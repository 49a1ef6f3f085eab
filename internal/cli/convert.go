package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/qrv0/sparrow/internal/matrix"
	"github.com/qrv0/sparrow/internal/sparse"
)

// CSRResult is the output of the coo2csr command.
type CSRResult struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	NNZ    int       `json:"nnz"`
	DType  string    `json:"dtype"`
	RowPtr []int32   `json:"row_ptr"`
	ColInd []int32   `json:"col_ind"`
	Val    []float64 `json:"val"`
	Digest string    `json:"xxh3"`
}

// NewCoo2CsrCommand creates the coo2csr command.
func NewCoo2CsrCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coo2csr <matrix.{json,spmx}>",
		Short: "Convert an unsorted COO matrix to CSR",
		Long: `Convert a COO matrix to CSR on the configured runtime.

Indices are sorted by row, values gathered through the sort permutation,
and row indices compressed into row pointers.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dtype, err := dtypeFor(cmd, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read input", err)
			}
			switch dtype {
			case "float32":
				return runCoo2Csr[float32](rootOpts, args[0], cmd)
			case "float64":
				return runCoo2Csr[float64](rootOpts, args[0], cmd)
			}
			return unsupportedDType(dtype)
		},
	}
	cmd.Flags().String("dtype", "float64", "element type (float32|float64)")
	return cmd
}

func runCoo2Csr[T sparse.Float](opts *RootOptions, path string, cmd *cobra.Command) error {
	coo, err := loadCOO[T](path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read input", err)
	}
	s, err := opts.open()
	if err != nil {
		return err
	}
	defer s.Close()

	csr, err := matrix.ToCSR(s.sp, s.h, sparse.DefaultStream, coo)
	if err != nil {
		return WrapExitError(ExitCommandError, "coo2csr", err)
	}
	res := CSRResult{
		Rows:   csr.Rows,
		Cols:   csr.Cols,
		NNZ:    csr.NNZ(),
		DType:  dtypeName[T](),
		RowPtr: csr.RowPtr,
		ColInd: csr.ColInd,
		Val:    widen(csr.Val),
		Digest: digest(csr.RowPtr, csr.ColInd, csr.Val),
	}
	return opts.formatter(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "csr %dx%d nnz=%d dtype=%s backend=%s\n", res.Rows, res.Cols, res.NNZ, res.DType, s.backend)
		fmt.Fprintf(w, "row_ptr: %v\ncol_ind: %v\nval:     %v\nxxh3:    %s\n", res.RowPtr, res.ColInd, res.Val, res.Digest)
	})
}

// SortResult is the output of the sort command.
type SortResult struct {
	ScratchBytes int     `json:"scratch_bytes"`
	RowInd       []int32 `json:"row_ind"`
	ColInd       []int32 `json:"col_ind"`
	Perm         []int32 `json:"perm"`
	Digest       string  `json:"xxh3"`
}

// NewSortCommand creates the sort command.
func NewSortCommand(rootOpts *RootOptions) *cobra.Command {
	var scratch int
	cmd := &cobra.Command{
		Use:   "sort <matrix.{json,spmx}>",
		Short: "Sort COO indices by row and print the permutation",
		Long: `Query the sort scratch size, then sort the COO indices by row.

--scratch overrides the queried size; a buffer smaller than the query
is rejected before the sort runs.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(rootOpts, args[0], scratch, cmd)
		},
	}
	cmd.Flags().IntVar(&scratch, "scratch", -1, "scratch buffer bytes (default: queried size)")
	return cmd
}

func runSort(opts *RootOptions, path string, scratch int, cmd *cobra.Command) error {
	coo, err := loadIndices(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read input", err)
	}
	s, err := opts.open()
	if err != nil {
		return err
	}
	defer s.Close()

	nnz := coo.nnz
	size, err := sparse.CooSortBufferSize(s.sp, s.h, coo.rows, coo.cols, nnz, coo.rowInd, coo.colInd, sparse.DefaultStream)
	if err != nil {
		return WrapExitError(ExitCommandError, "sort buffer size", err)
	}
	opts.formatter(cmd).VerboseLog("sort scratch: %d bytes", size)
	if scratch < 0 {
		scratch = size
	}
	perm := matrix.Identity(nnz)
	if err := sparse.CooSortByRow(s.sp, s.h, coo.rows, coo.cols, nnz, coo.rowInd, coo.colInd, perm, make([]byte, scratch), sparse.DefaultStream); err != nil {
		return WrapExitError(ExitCommandError, "sort", err)
	}
	res := SortResult{
		ScratchBytes: size,
		RowInd:       coo.rowInd,
		ColInd:       coo.colInd,
		Perm:         perm,
		Digest:       digest(coo.rowInd, coo.colInd, perm),
	}
	return opts.formatter(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "scratch: %d bytes\nrow_ind: %v\ncol_ind: %v\nperm:    %v\nxxh3:    %s\n",
			res.ScratchBytes, res.RowInd, res.ColInd, res.Perm, res.Digest)
	})
}

type cooIndices struct {
	rows, cols, nnz int
	rowInd, colInd  []int32
}

func loadIndices(path string) (*cooIndices, error) {
	dtype := "float64"
	if isContainer(path) {
		var err error
		if dtype, err = storedDType(path); err != nil {
			return nil, err
		}
	}
	if dtype == "float32" {
		coo, err := loadCOO[float32](path)
		if err != nil {
			return nil, err
		}
		return &cooIndices{coo.Rows, coo.Cols, coo.NNZ(), coo.RowInd, coo.ColInd}, nil
	}
	coo, err := loadCOO[float64](path)
	if err != nil {
		return nil, err
	}
	return &cooIndices{coo.Rows, coo.Cols, coo.NNZ(), coo.RowInd, coo.ColInd}, nil
}
