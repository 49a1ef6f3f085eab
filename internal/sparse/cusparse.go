//go:build cuda

package sparse

/*
#cgo LDFLAGS: -lcusparse -lcudart
#include <cuda_runtime.h>
#include <cusparse.h>

static int sp_create(cusparseHandle_t* h) { return (int)cusparseCreate(h); }
static int sp_destroy(cusparseHandle_t h) { return (int)cusparseDestroy(h); }
static int sp_set_stream(cusparseHandle_t h, cudaStream_t s) { return (int)cusparseSetStream(h, s); }

static int sp_sgthr(cusparseHandle_t h, int nnz, const float* y, float* xVal, const int* xInd, int base) {
    return (int)cusparseSgthr(h, nnz, y, xVal, xInd, (cusparseIndexBase_t)base);
}
static int sp_dgthr(cusparseHandle_t h, int nnz, const double* y, double* xVal, const int* xInd, int base) {
    return (int)cusparseDgthr(h, nnz, y, xVal, xInd, (cusparseIndexBase_t)base);
}
static int sp_xcoo2csr(cusparseHandle_t h, const int* rows, int nnz, int m, int* ptr, int base) {
    return (int)cusparseXcoo2csr(h, rows, nnz, m, ptr, (cusparseIndexBase_t)base);
}
static int sp_coosort_size(cusparseHandle_t h, int m, int n, int nnz, const int* rows, const int* cols, size_t* out) {
    return (int)cusparseXcoosort_bufferSizeExt(h, m, n, nnz, rows, cols, out);
}
static int sp_coosort_by_row(cusparseHandle_t h, int m, int n, int nnz, int* rows, int* cols, int* p, void* buf) {
    return (int)cusparseXcoosortByRow(h, m, n, nnz, rows, cols, p, buf);
}
static int sp_sgemmi(cusparseHandle_t h, int m, int n, int k, int nnz, float alpha, const float* A, int lda,
                     const float* val, const int* colPtr, const int* rowInd, float beta, float* C, int ldc) {
    return (int)cusparseSgemmi(h, m, n, k, nnz, &alpha, A, lda, val, colPtr, rowInd, &beta, C, ldc);
}
static int sp_dgemmi(cusparseHandle_t h, int m, int n, int k, int nnz, double alpha, const double* A, int lda,
                     const double* val, const int* colPtr, const int* rowInd, double beta, double* C, int ldc) {
    return (int)cusparseDgemmi(h, m, n, k, nnz, &alpha, A, lda, val, colPtr, rowInd, &beta, C, ldc);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// CUDARuntime calls libcusparse. Slices passed to it must be backed by
// device-accessible memory (e.g. cudaMallocManaged viewed via unsafe.Slice);
// the caller owns that memory.
type CUDARuntime struct{}

// Available reports whether the cuSPARSE runtime can create a handle.
func Available() bool {
	var h C.cusparseHandle_t
	if C.sp_create(&h) != 0 {
		return false
	}
	C.sp_destroy(h)
	return true
}

// NewCUDARuntime returns the cuSPARSE runtime or an error if no device is usable.
func NewCUDARuntime() (Runtime, error) {
	if !Available() {
		return nil, fmt.Errorf("cusparse: no usable device")
	}
	return CUDARuntime{}, nil
}

func chandle(h Handle) C.cusparseHandle_t { return C.cusparseHandle_t(unsafe.Pointer(uintptr(h))) }

func ptr[T any](s []T) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Pointer(&s[0])
}

func (CUDARuntime) Create() (Handle, Status) {
	var h C.cusparseHandle_t
	st := Status(C.sp_create(&h))
	return Handle(uintptr(unsafe.Pointer(h))), st
}

func (CUDARuntime) Destroy(h Handle) Status { return Status(C.sp_destroy(chandle(h))) }

func (CUDARuntime) SetStream(h Handle, s Stream) Status {
	return Status(C.sp_set_stream(chandle(h), C.cudaStream_t(unsafe.Pointer(uintptr(s)))))
}

func (CUDARuntime) Sgthr(h Handle, nnz int, y, xVal []float32, xInd []int32, base IndexBase) Status {
	return Status(C.sp_sgthr(chandle(h), C.int(nnz), (*C.float)(ptr(y)), (*C.float)(ptr(xVal)), (*C.int)(ptr(xInd)), C.int(base)))
}

func (CUDARuntime) Dgthr(h Handle, nnz int, y, xVal []float64, xInd []int32, base IndexBase) Status {
	return Status(C.sp_dgthr(chandle(h), C.int(nnz), (*C.double)(ptr(y)), (*C.double)(ptr(xVal)), (*C.int)(ptr(xInd)), C.int(base)))
}

func (CUDARuntime) Xcoo2csr(h Handle, cooRowInd []int32, nnz, m int, csrRowPtr []int32, base IndexBase) Status {
	return Status(C.sp_xcoo2csr(chandle(h), (*C.int)(ptr(cooRowInd)), C.int(nnz), C.int(m), (*C.int)(ptr(csrRowPtr)), C.int(base)))
}

func (CUDARuntime) XcoosortBufferSizeExt(h Handle, m, n, nnz int, cooRows, cooCols []int32) (int, Status) {
	var out C.size_t
	st := Status(C.sp_coosort_size(chandle(h), C.int(m), C.int(n), C.int(nnz), (*C.int)(ptr(cooRows)), (*C.int)(ptr(cooCols)), &out))
	return int(out), st
}

func (CUDARuntime) XcoosortByRow(h Handle, m, n, nnz int, cooRows, cooCols, perm []int32, buf []byte) Status {
	return Status(C.sp_coosort_by_row(chandle(h), C.int(m), C.int(n), C.int(nnz),
		(*C.int)(ptr(cooRows)), (*C.int)(ptr(cooCols)), (*C.int)(ptr(perm)), ptr(buf)))
}

func (CUDARuntime) Sgemmi(h Handle, m, n, k, nnz int, alpha float32, a []float32, lda int,
	cscVal []float32, cscColPtr, cscRowInd []int32, beta float32, c []float32, ldc int) Status {
	return Status(C.sp_sgemmi(chandle(h), C.int(m), C.int(n), C.int(k), C.int(nnz), C.float(alpha),
		(*C.float)(ptr(a)), C.int(lda), (*C.float)(ptr(cscVal)), (*C.int)(ptr(cscColPtr)), (*C.int)(ptr(cscRowInd)),
		C.float(beta), (*C.float)(ptr(c)), C.int(ldc)))
}

func (CUDARuntime) Dgemmi(h Handle, m, n, k, nnz int, alpha float64, a []float64, lda int,
	cscVal []float64, cscColPtr, cscRowInd []int32, beta float64, c []float64, ldc int) Status {
	return Status(C.sp_dgemmi(chandle(h), C.int(m), C.int(n), C.int(k), C.int(nnz), C.double(alpha),
		(*C.double)(ptr(a)), C.int(lda), (*C.double)(ptr(cscVal)), (*C.int)(ptr(cscColPtr)), (*C.int)(ptr(cscRowInd)),
		C.double(beta), (*C.double)(ptr(c)), C.int(ldc)))
}
