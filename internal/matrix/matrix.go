package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/qrv0/sparrow/internal/sparse"
)

// COO is a coordinate-list sparse matrix with zero-based indices.
type COO[T sparse.Float] struct {
	Rows, Cols int
	RowInd     []int32
	ColInd     []int32
	Val        []T
}

// CSR is a compressed-row sparse matrix; RowPtr has Rows+1 entries.
type CSR[T sparse.Float] struct {
	Rows, Cols int
	RowPtr     []int32
	ColInd     []int32
	Val        []T
}

// CSC is a compressed-column sparse matrix; ColPtr has Cols+1 entries.
type CSC[T sparse.Float] struct {
	Rows, Cols int
	ColPtr     []int32
	RowInd     []int32
	Val        []T
}

func (c *COO[T]) NNZ() int { return len(c.Val) }

// Validate checks shape and index ranges.
func (c *COO[T]) Validate() error {
	if c.Rows < 0 || c.Cols < 0 {
		return fmt.Errorf("coo: negative shape %dx%d", c.Rows, c.Cols)
	}
	if len(c.RowInd) != len(c.Val) || len(c.ColInd) != len(c.Val) {
		return fmt.Errorf("coo: length mismatch rows=%d cols=%d vals=%d", len(c.RowInd), len(c.ColInd), len(c.Val))
	}
	for i := range c.Val {
		if r := c.RowInd[i]; r < 0 || int(r) >= c.Rows {
			return fmt.Errorf("coo: entry %d row %d out of range [0,%d)", i, r, c.Rows)
		}
		if col := c.ColInd[i]; col < 0 || int(col) >= c.Cols {
			return fmt.Errorf("coo: entry %d col %d out of range [0,%d)", i, col, c.Cols)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *COO[T]) Clone() *COO[T] {
	return &COO[T]{
		Rows:   c.Rows,
		Cols:   c.Cols,
		RowInd: append([]int32(nil), c.RowInd...),
		ColInd: append([]int32(nil), c.ColInd...),
		Val:    append([]T(nil), c.Val...),
	}
}

// ToCSC compresses by column on the host, keeping entry order within a column.
func (c *COO[T]) ToCSC() *CSC[T] {
	nnz := c.NNZ()
	out := &CSC[T]{
		Rows:   c.Rows,
		Cols:   c.Cols,
		ColPtr: make([]int32, c.Cols+1),
		RowInd: make([]int32, nnz),
		Val:    make([]T, nnz),
	}
	for _, col := range c.ColInd {
		out.ColPtr[col+1]++
	}
	for j := 0; j < c.Cols; j++ {
		out.ColPtr[j+1] += out.ColPtr[j]
	}
	next := append([]int32(nil), out.ColPtr[:c.Cols]...)
	for i := 0; i < nnz; i++ {
		col := c.ColInd[i]
		at := next[col]
		next[col]++
		out.RowInd[at] = c.RowInd[i]
		out.Val[at] = c.Val[i]
	}
	return out
}

// Dense expands c into a gonum matrix. Duplicate entries are summed.
func (c *COO[T]) Dense() *mat.Dense {
	d := mat.NewDense(max(c.Rows, 1), max(c.Cols, 1), nil)
	for i, v := range c.Val {
		r, col := int(c.RowInd[i]), int(c.ColInd[i])
		d.Set(r, col, d.At(r, col)+float64(v))
	}
	return d
}

func (c *CSR[T]) NNZ() int { return len(c.Val) }

// Dense expands c into a gonum matrix.
func (c *CSR[T]) Dense() *mat.Dense {
	d := mat.NewDense(max(c.Rows, 1), max(c.Cols, 1), nil)
	for i := 0; i < c.Rows; i++ {
		for p := c.RowPtr[i]; p < c.RowPtr[i+1]; p++ {
			col := int(c.ColInd[p])
			d.Set(i, col, d.At(i, col)+float64(c.Val[p]))
		}
	}
	return d
}

func (c *CSC[T]) NNZ() int { return len(c.Val) }

// Dense expands c into a gonum matrix.
func (c *CSC[T]) Dense() *mat.Dense {
	d := mat.NewDense(max(c.Rows, 1), max(c.Cols, 1), nil)
	for j := 0; j < c.Cols; j++ {
		for p := c.ColPtr[j]; p < c.ColPtr[j+1]; p++ {
			r := int(c.RowInd[p])
			d.Set(r, j, d.At(r, j)+float64(c.Val[p]))
		}
	}
	return d
}

// Identity returns the permutation 0..n-1.
func Identity(n int) []int32 {
	p := make([]int32, n)
	for i := range p {
		p[i] = int32(i)
	}
	return p
}

// ColMajor copies a gonum matrix into column-major storage with ld = rows.
func ColMajor[T sparse.Float](d mat.Matrix) []T {
	r, c := d.Dims()
	out := make([]T, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out[j*r+i] = T(d.At(i, j))
		}
	}
	return out
}

// FromColMajor wraps column-major data with leading dimension ld as a gonum matrix.
func FromColMajor[T sparse.Float](rows, cols, ld int, data []T) *mat.Dense {
	d := mat.NewDense(max(rows, 1), max(cols, 1), nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			d.Set(i, j, float64(data[j*ld+i]))
		}
	}
	return d
}
