package sparse

import (
	"fmt"
)

// Float is the closed set of value element types with native entry points.
type Float interface {
	float32 | float64
}

// Index is the closed set of index element types with native entry points.
type Index interface {
	int32
}

// floatOps is the per-element-type entry table for value operations.
type floatOps[T Float] struct {
	gthrCall  string
	gthr      func(Runtime, Handle, int, []T, []T, []int32, IndexBase) Status
	gemmiCall string
	gemmi     func(Runtime, Handle, int, int, int, int, T, []T, int, []T, []int32, []int32, T, []T, int) Status
}

var (
	float32Ops = floatOps[float32]{
		gthrCall:  "cusparseSgthr(handle, nnz, vals, vals_sorted, d_P, CUSPARSE_INDEX_BASE_ZERO)",
		gthr:      Runtime.Sgthr,
		gemmiCall: "cusparseSgemmi(handle, m, n, k, nnz, alpha, A, lda, cscValB, cscColPtrB, cscRowIndB, beta, C, ldc)",
		gemmi:     Runtime.Sgemmi,
	}
	float64Ops = floatOps[float64]{
		gthrCall:  "cusparseDgthr(handle, nnz, vals, vals_sorted, d_P, CUSPARSE_INDEX_BASE_ZERO)",
		gthr:      Runtime.Dgthr,
		gemmiCall: "cusparseDgemmi(handle, m, n, k, nnz, alpha, A, lda, cscValB, cscColPtrB, cscRowIndB, beta, C, ldc)",
		gemmi:     Runtime.Dgemmi,
	}
)

// opsFor resolves the entry table for T. The Float constraint keeps the
// switch exhaustive; other element types are rejected by the compiler.
func opsFor[T Float]() *floatOps[T] {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(&float32Ops).(*floatOps[T])
	case float64:
		return any(&float64Ops).(*floatOps[T])
	}
	panic("sparse: unreachable element type")
}

// indices views an Index slice as the native int32 slice.
func indices[I Index](s []I) []int32 {
	return any(s).([]int32)
}

const (
	setStreamCall = "cusparseSetStream(handle, stream)"
	coo2csrCall   = "cusparseXcoo2csr(handle, cooRowInd, nnz, m, csrRowPtr, CUSPARSE_INDEX_BASE_ZERO)"
	sortSizeCall  = "cusparseXcoosort_bufferSizeExt(handle, m, n, nnz, cooRows, cooCols, &val)"
	sortByRowCall = "cusparseXcoosortByRow(handle, m, n, nnz, cooRows, cooCols, P, pBuffer)"
)

// Sparse issues typed operations against a Runtime. It holds no per-call
// state and no locks; callers own handle exclusivity.
type Sparse struct {
	rt    Runtime
	guard *Guard
}

// New binds rt to guard. A nil guard reports nowhere.
func New(rt Runtime, guard *Guard) *Sparse {
	if guard == nil {
		guard = &Guard{}
	}
	return &Sparse{rt: rt, guard: guard}
}

// Runtime returns the underlying runtime, e.g. to create handles.
func (s *Sparse) Runtime() Runtime { return s.rt }

// Guard returns the guard every call goes through.
func (s *Sparse) Guard() *Guard { return s.guard }

func (s *Sparse) bind(h Handle, stream Stream) error {
	return s.guard.Check(setStreamCall, func() Status { return s.rt.SetStream(h, stream) })
}

// reject fails call before it reaches the runtime.
func (s *Sparse) reject(call string, cause error) error {
	s.guard.sink().Report(Event{Call: call, Status: StatusInvalidValue, Raised: true})
	return newError(call, StatusInvalidValue, cause)
}

// Gthr gathers vals through perm into valsSorted: valsSorted[i] = vals[perm[i]].
// Out-of-range perm entries are left to the runtime.
func Gthr[T Float](s *Sparse, h Handle, nnz int, vals, valsSorted []T, perm []int32, stream Stream) error {
	ops := opsFor[T]()
	if err := s.bind(h, stream); err != nil {
		return err
	}
	if nnz < 0 || len(vals) < nnz || len(valsSorted) < nnz || len(perm) < nnz {
		return s.reject(ops.gthrCall, fmt.Errorf("nnz=%d exceeds buffers (vals=%d, vals_sorted=%d, perm=%d)",
			nnz, len(vals), len(valsSorted), len(perm)))
	}
	return s.guard.Check(ops.gthrCall, func() Status {
		return ops.gthr(s.rt, h, nnz, vals, valsSorted, perm, IndexBaseZero)
	})
}

// Coo2Csr compresses nnz row indices over m rows into csrRowPtr (length m+1).
// cooRows must already be sorted ascending.
func Coo2Csr[I Index](s *Sparse, h Handle, cooRows []I, nnz, m int, csrRowPtr []I, stream Stream) error {
	if err := s.bind(h, stream); err != nil {
		return err
	}
	if nnz < 0 || m < 0 || len(cooRows) < nnz || len(csrRowPtr) < m+1 {
		return s.reject(coo2csrCall, fmt.Errorf("nnz=%d m=%d exceeds buffers (rows=%d, row_ptr=%d)",
			nnz, m, len(cooRows), len(csrRowPtr)))
	}
	rows, ptr := indices(cooRows), indices(csrRowPtr)
	return s.guard.Check(coo2csrCall, func() Status {
		return s.rt.Xcoo2csr(h, rows, nnz, m, ptr, IndexBaseZero)
	})
}

// CooSortBufferSize queries the scratch size in bytes CooSortByRow needs.
// The query does not touch any buffer.
func CooSortBufferSize[I Index](s *Sparse, h Handle, m, n, nnz int, cooRows, cooCols []I, stream Stream) (int, error) {
	if err := s.bind(h, stream); err != nil {
		return 0, err
	}
	return s.bufferSize(h, m, n, nnz, indices(cooRows), indices(cooCols))
}

func (s *Sparse) bufferSize(h Handle, m, n, nnz int, rows, cols []int32) (int, error) {
	if m < 0 || n < 0 || nnz < 0 || len(rows) < nnz || len(cols) < nnz {
		return 0, s.reject(sortSizeCall, fmt.Errorf("m=%d n=%d nnz=%d exceeds buffers (rows=%d, cols=%d)",
			m, n, nnz, len(rows), len(cols)))
	}
	var size int
	err := s.guard.Check(sortSizeCall, func() Status {
		var st Status
		size, st = s.rt.XcoosortBufferSizeExt(h, m, n, nnz, rows, cols)
		return st
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

// CooSortByRow stably sorts the parallel cooRows/cooCols arrays by row and
// records the applied permutation in perm. scratch must be at least the size
// CooSortBufferSize reports; a smaller buffer fails with ErrScratchTooSmall.
func CooSortByRow[I Index](s *Sparse, h Handle, m, n, nnz int, cooRows, cooCols, perm []I, scratch []byte, stream Stream) error {
	if err := s.bind(h, stream); err != nil {
		return err
	}
	rows, cols, p := indices(cooRows), indices(cooCols), indices(perm)
	if len(p) < nnz {
		return s.reject(sortByRowCall, fmt.Errorf("nnz=%d exceeds perm=%d", nnz, len(p)))
	}
	need, err := s.bufferSize(h, m, n, nnz, rows, cols)
	if err != nil {
		return err
	}
	if len(scratch) < need {
		return s.reject(sortByRowCall, fmt.Errorf("%w: have %d bytes, need %d", ErrScratchTooSmall, len(scratch), need))
	}
	return s.guard.Check(sortByRowCall, func() Status {
		return s.rt.XcoosortByRow(h, m, n, nnz, rows, cols, p, scratch)
	})
}

// Gemmi computes C = alpha*A*B + beta*C with A (m x k) and C (m x n) dense
// column-major and B (k x n) in CSC form. The native routine takes no stream,
// so nothing is bound.
func Gemmi[T Float](s *Sparse, h Handle, m, n, k, nnz int, alpha T, a []T, lda int,
	cscVal []T, cscColPtr, cscRowInd []int32, beta T, c []T, ldc int) error {
	ops := opsFor[T]()
	if err := checkGemmi(m, n, k, nnz, len(a), lda, len(cscVal), len(cscColPtr), len(cscRowInd), len(c), ldc); err != nil {
		return s.reject(ops.gemmiCall, err)
	}
	return s.guard.Check(ops.gemmiCall, func() Status {
		return ops.gemmi(s.rt, h, m, n, k, nnz, alpha, a, lda, cscVal, cscColPtr, cscRowInd, beta, c, ldc)
	})
}

func checkGemmi(m, n, k, nnz, lenA, lda, lenVal, lenColPtr, lenRowInd, lenC, ldc int) error {
	switch {
	case m < 0 || n < 0 || k < 0 || nnz < 0:
		return fmt.Errorf("negative dimension m=%d n=%d k=%d nnz=%d", m, n, k, nnz)
	case lda < max(1, m) || ldc < max(1, m):
		return fmt.Errorf("leading dimension below m=%d (lda=%d, ldc=%d)", m, lda, ldc)
	case k > 0 && lenA < lda*(k-1)+m:
		return fmt.Errorf("A holds %d values, need %d", lenA, lda*(k-1)+m)
	case n > 0 && lenC < ldc*(n-1)+m:
		return fmt.Errorf("C holds %d values, need %d", lenC, ldc*(n-1)+m)
	case lenColPtr < n+1:
		return fmt.Errorf("cscColPtrB holds %d entries, need %d", lenColPtr, n+1)
	case lenVal < nnz || lenRowInd < nnz:
		return fmt.Errorf("nnz=%d exceeds cscValB=%d or cscRowIndB=%d", nnz, lenVal, lenRowInd)
	}
	return nil
}
