package sparse

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// HostRuntime implements Runtime on the CPU. Each handle keeps its own bound
// stream; distinct handles never share state. Kernel panics surface as
// StatusExecutionFailed.
type HostRuntime struct {
	mu      sync.Mutex
	next    Handle
	handles map[Handle]Stream
}

// NewHostRuntime returns an empty host runtime.
func NewHostRuntime() *HostRuntime {
	return &HostRuntime{handles: make(map[Handle]Stream)}
}

func (r *HostRuntime) Create() (Handle, Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.handles[r.next] = DefaultStream
	return r.next, StatusSuccess
}

func (r *HostRuntime) Destroy(h Handle) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[h]; !ok {
		return StatusNotInitialized
	}
	delete(r.handles, h)
	return StatusSuccess
}

func (r *HostRuntime) SetStream(h Handle, s Stream) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[h]; !ok {
		return StatusNotInitialized
	}
	r.handles[h] = s
	return StatusSuccess
}

// BoundStream reports the stream currently bound to h.
func (r *HostRuntime) BoundStream(h Handle) (Stream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.handles[h]
	return s, ok
}

func (r *HostRuntime) run(h Handle, fn func() Status) (st Status) {
	r.mu.Lock()
	_, ok := r.handles[h]
	r.mu.Unlock()
	if !ok {
		return StatusNotInitialized
	}
	defer func() {
		if recover() != nil {
			st = StatusExecutionFailed
		}
	}()
	return fn()
}

func (r *HostRuntime) Sgthr(h Handle, nnz int, y, xVal []float32, xInd []int32, base IndexBase) Status {
	return r.run(h, func() Status { return gather(nnz, y, xVal, xInd, base) })
}

func (r *HostRuntime) Dgthr(h Handle, nnz int, y, xVal []float64, xInd []int32, base IndexBase) Status {
	return r.run(h, func() Status { return gather(nnz, y, xVal, xInd, base) })
}

func gather[T Float](nnz int, y, xVal []T, xInd []int32, base IndexBase) Status {
	for i := 0; i < nnz; i++ {
		j := int(xInd[i]) - int(base)
		if j < 0 || j >= len(y) {
			return StatusInvalidValue
		}
		xVal[i] = y[j]
	}
	return StatusSuccess
}

func (r *HostRuntime) Xcoo2csr(h Handle, cooRowInd []int32, nnz, m int, csrRowPtr []int32, base IndexBase) Status {
	return r.run(h, func() Status {
		ptr := csrRowPtr[:m+1]
		for i := range ptr {
			ptr[i] = 0
		}
		for _, row := range cooRowInd[:nnz] {
			ri := int(row) - int(base)
			if ri < 0 || ri >= m {
				return StatusInvalidValue
			}
			ptr[ri+1]++
		}
		for i := 0; i < m; i++ {
			ptr[i+1] += ptr[i]
		}
		for i := range ptr {
			ptr[i] += int32(base)
		}
		return StatusSuccess
	})
}

// sortScratchBytes is the scratch size the host sort reports: one int32 key
// per entry.
func sortScratchBytes(nnz int) int { return 4 * nnz }

func (r *HostRuntime) XcoosortBufferSizeExt(h Handle, m, n, nnz int, cooRows, cooCols []int32) (int, Status) {
	var size int
	st := r.run(h, func() Status {
		size = sortScratchBytes(nnz)
		return StatusSuccess
	})
	return size, st
}

func (r *HostRuntime) XcoosortByRow(h Handle, m, n, nnz int, cooRows, cooCols, perm []int32, buf []byte) Status {
	return r.run(h, func() Status {
		if len(buf) < sortScratchBytes(nnz) {
			return StatusInvalidValue
		}
		rows, cols, p := cooRows[:nnz], cooCols[:nnz], perm[:nnz]
		for i := range rows {
			if rows[i] < 0 || int(rows[i]) >= m || cols[i] < 0 || int(cols[i]) >= n {
				return StatusInvalidValue
			}
		}
		order := make([]int, nnz)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return rows[order[a]] < rows[order[b]] })
		r2 := make([]int32, nnz)
		c2 := make([]int32, nnz)
		p2 := make([]int32, nnz)
		for i, o := range order {
			r2[i], c2[i], p2[i] = rows[o], cols[o], p[o]
		}
		copy(rows, r2)
		copy(cols, c2)
		copy(p, p2)
		return StatusSuccess
	})
}

func (r *HostRuntime) Sgemmi(h Handle, m, n, k, nnz int, alpha float32, a []float32, lda int,
	cscVal []float32, cscColPtr, cscRowInd []int32, beta float32, c []float32, ldc int) Status {
	return r.run(h, func() Status {
		bt, st := denseTranspose(k, n, nnz, cscVal, cscColPtr, cscRowInd)
		if st != StatusSuccess || m == 0 || n == 0 {
			return st
		}
		if k == 0 {
			scaleColumns(m, n, beta, c, ldc)
			return StatusSuccess
		}
		blas32.Gemm(blas.NoTrans, blas.NoTrans, alpha,
			blas32.General{Rows: n, Cols: k, Stride: k, Data: bt},
			blas32.General{Rows: k, Cols: m, Stride: lda, Data: a},
			beta,
			blas32.General{Rows: n, Cols: m, Stride: ldc, Data: c})
		return StatusSuccess
	})
}

func (r *HostRuntime) Dgemmi(h Handle, m, n, k, nnz int, alpha float64, a []float64, lda int,
	cscVal []float64, cscColPtr, cscRowInd []int32, beta float64, c []float64, ldc int) Status {
	return r.run(h, func() Status {
		bt, st := denseTranspose(k, n, nnz, cscVal, cscColPtr, cscRowInd)
		if st != StatusSuccess || m == 0 || n == 0 {
			return st
		}
		if k == 0 {
			scaleColumns(m, n, beta, c, ldc)
			return StatusSuccess
		}
		blas64.Gemm(blas.NoTrans, blas.NoTrans, alpha,
			blas64.General{Rows: n, Cols: k, Stride: k, Data: bt},
			blas64.General{Rows: k, Cols: m, Stride: lda, Data: a},
			beta,
			blas64.General{Rows: n, Cols: m, Stride: ldc, Data: c})
		return StatusSuccess
	})
}

// denseTranspose expands the k x n CSC matrix B into B^T, row-major n x k.
// A column-major m x k matrix with leading dimension ld is the same memory as
// its row-major k x m transpose with stride ld, so C^T = B^T A^T maps gemmi
// onto a row-major GEMM.
func denseTranspose[T Float](k, n, nnz int, val []T, colPtr, rowInd []int32) ([]T, Status) {
	bt := make([]T, n*k)
	if int(colPtr[0]) != 0 || int(colPtr[n]) != nnz {
		return nil, StatusInvalidValue
	}
	for j := 0; j < n; j++ {
		lo, hi := int(colPtr[j]), int(colPtr[j+1])
		if lo > hi {
			return nil, StatusInvalidValue
		}
		for p := lo; p < hi; p++ {
			row := int(rowInd[p])
			if row < 0 || row >= k {
				return nil, StatusInvalidValue
			}
			bt[j*k+row] += val[p]
		}
	}
	return bt, StatusSuccess
}

// scaleColumns sets C = beta*C. With beta == 0 C is write-only and its
// previous contents, NaN included, are discarded.
func scaleColumns[T Float](m, n int, beta T, c []T, ldc int) {
	for j := 0; j < n; j++ {
		col := c[j*ldc : j*ldc+m]
		if beta == 0 {
			clear(col)
			continue
		}
		for i := range col {
			col[i] *= beta
		}
	}
}
