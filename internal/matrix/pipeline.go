package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/qrv0/sparrow/internal/sparse"
)

// ToCSR converts an unsorted COO matrix to CSR through the runtime: query the
// sort scratch size, sort indices by row, gather values through the
// resulting permutation, then compress the row indices. coo is not modified.
func ToCSR[T sparse.Float](s *sparse.Sparse, h sparse.Handle, stream sparse.Stream, coo *COO[T]) (*CSR[T], error) {
	if err := coo.Validate(); err != nil {
		return nil, err
	}
	nnz := coo.NNZ()
	rows := append([]int32(nil), coo.RowInd...)
	cols := append([]int32(nil), coo.ColInd...)
	perm := Identity(nnz)

	size, err := sparse.CooSortBufferSize(s, h, coo.Rows, coo.Cols, nnz, rows, cols, stream)
	if err != nil {
		return nil, fmt.Errorf("sort buffer size: %w", err)
	}
	if err := sparse.CooSortByRow(s, h, coo.Rows, coo.Cols, nnz, rows, cols, perm, make([]byte, size), stream); err != nil {
		return nil, fmt.Errorf("sort by row: %w", err)
	}
	vals := make([]T, nnz)
	if err := sparse.Gthr(s, h, nnz, coo.Val, vals, perm, stream); err != nil {
		return nil, fmt.Errorf("gather values: %w", err)
	}
	rowPtr := make([]int32, coo.Rows+1)
	if err := sparse.Coo2Csr(s, h, rows, nnz, coo.Rows, rowPtr, stream); err != nil {
		return nil, fmt.Errorf("coo to csr: %w", err)
	}
	return &CSR[T]{Rows: coo.Rows, Cols: coo.Cols, RowPtr: rowPtr, ColInd: cols, Val: vals}, nil
}

// MulDense computes C = alpha*A*B + beta*C where A (m x k) and C (m x n) are
// column-major with leading dimensions lda and ldc, and B is k x n.
func MulDense[T sparse.Float](s *sparse.Sparse, h sparse.Handle, alpha T, a []T, m, lda int, b *CSC[T], beta T, c []T, ldc int) error {
	if err := sparse.Gemmi(s, h, m, b.Cols, b.Rows, b.NNZ(), alpha, a, lda, b.Val, b.ColPtr, b.RowInd, beta, c, ldc); err != nil {
		return fmt.Errorf("sparse-dense product: %w", err)
	}
	return nil
}

// ReferenceMul computes alpha*A*B + beta*C densely with gonum, for checking
// MulDense results. a and c use the same layout MulDense expects.
func ReferenceMul[T sparse.Float](alpha T, a []T, m, lda int, b *CSC[T], beta T, c []T, ldc int) *mat.Dense {
	var ab mat.Dense
	ab.Mul(FromColMajor(m, b.Rows, lda, a), b.Dense())
	ab.Scale(float64(alpha), &ab)
	var out mat.Dense
	cd := FromColMajor(m, b.Cols, ldc, c)
	cd.Scale(float64(beta), cd)
	out.Add(&ab, cd)
	return &out
}
