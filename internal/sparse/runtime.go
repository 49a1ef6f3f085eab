package sparse

// Handle is an opaque session with the native runtime. Its lifetime belongs to
// the caller. A handle carries the stream last bound to it, so it must not be
// shared across goroutines without external locking (see internal/workers).
type Handle uintptr

// Stream identifies an asynchronous execution queue.
type Stream uintptr

// DefaultStream is the runtime's legacy default queue.
const DefaultStream Stream = 0

// IndexBase selects zero- or one-based indices.
type IndexBase int32

const (
	IndexBaseZero IndexBase = 0
	IndexBaseOne  IndexBase = 1
)

// Runtime is the native entry point surface, one method per distinctly named
// routine. Buffers are caller-owned; implementations only read and write them.
//
// Gthr follows the native gather convention: xVal[i] = y[xInd[i]].
type Runtime interface {
	Create() (Handle, Status)
	Destroy(h Handle) Status
	SetStream(h Handle, s Stream) Status

	Sgthr(h Handle, nnz int, y, xVal []float32, xInd []int32, base IndexBase) Status
	Dgthr(h Handle, nnz int, y, xVal []float64, xInd []int32, base IndexBase) Status

	Xcoo2csr(h Handle, cooRowInd []int32, nnz, m int, csrRowPtr []int32, base IndexBase) Status

	XcoosortBufferSizeExt(h Handle, m, n, nnz int, cooRows, cooCols []int32) (int, Status)
	XcoosortByRow(h Handle, m, n, nnz int, cooRows, cooCols, perm []int32, buf []byte) Status

	Sgemmi(h Handle, m, n, k, nnz int, alpha float32, a []float32, lda int,
		cscVal []float32, cscColPtr, cscRowInd []int32, beta float32, c []float32, ldc int) Status
	Dgemmi(h Handle, m, n, k, nnz int, alpha float64, a []float64, lda int,
		cscVal []float64, cscColPtr, cscRowInd []int32, beta float64, c []float64, ldc int) Status
}
