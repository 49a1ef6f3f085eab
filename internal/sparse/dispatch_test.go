package sparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStream Stream = 0xbeef

func TestGthrRoutesByElementType(t *testing.T) {
	t.Run("float32", func(t *testing.T) {
		rec := newRecorder()
		s := New(rec, nil)
		vals, out := make([]float32, 3), make([]float32, 3)
		require.NoError(t, Gthr(s, 1, 3, vals, out, []int32{2, 1, 0}, testStream))
		assert.Equal(t, []string{"SetStream", "Sgthr"}, rec.Calls())
	})
	t.Run("float64", func(t *testing.T) {
		rec := newRecorder()
		s := New(rec, nil)
		vals, out := make([]float64, 3), make([]float64, 3)
		require.NoError(t, Gthr(s, 1, 3, vals, out, []int32{2, 1, 0}, testStream))
		assert.Equal(t, []string{"SetStream", "Dgthr"}, rec.Calls())
	})
}

func TestGemmiRoutesByElementTypeWithoutBinding(t *testing.T) {
	colPtr, rowInd := []int32{0, 1, 2}, []int32{0, 1}

	rec := newRecorder()
	s := New(rec, nil)
	require.NoError(t, Gemmi[float32](s, 1, 2, 2, 2, 2, 1, make([]float32, 4), 2, make([]float32, 2), colPtr, rowInd, 0, make([]float32, 4), 2))
	assert.Equal(t, []string{"Sgemmi"}, rec.Calls())

	rec = newRecorder()
	s = New(rec, nil)
	require.NoError(t, Gemmi[float64](s, 1, 2, 2, 2, 2, 1, make([]float64, 4), 2, make([]float64, 2), colPtr, rowInd, 0, make([]float64, 4), 2))
	assert.Equal(t, []string{"Dgemmi"}, rec.Calls())
}

func TestBindPrecedesEveryStreamOperation(t *testing.T) {
	rec := newRecorder()
	s := New(rec, nil)
	h := Handle(7)

	rows, cols, perm := []int32{2, 0, 1, 3, 0, 1}, []int32{0, 1, 2, 3, 0, 1}, []int32{0, 1, 2, 3, 4, 5}
	require.NoError(t, Gthr(s, h, 6, make([]float32, 6), make([]float32, 6), perm, testStream))
	require.NoError(t, Gthr(s, h, 6, make([]float64, 6), make([]float64, 6), perm, testStream))
	require.NoError(t, Coo2Csr(s, h, []int32{0, 0, 1}, 3, 2, make([]int32, 3), testStream))
	_, err := CooSortBufferSize(s, h, 4, 4, 6, rows, cols, testStream)
	require.NoError(t, err)
	require.NoError(t, CooSortByRow(s, h, 4, 4, 6, rows, cols, perm, make([]byte, rec.size), testStream))

	calls := rec.Calls()
	require.NotEmpty(t, calls)
	ops := 0
	for i, c := range calls {
		if c == "SetStream" {
			continue
		}
		ops++
		// every operation is immediately preceded by a bind, or by the size
		// query that follows one inside CooSortByRow
		prev := calls[i-1]
		if c == "XcoosortByRow" {
			assert.Equal(t, "XcoosortBufferSizeExt", prev)
			assert.Equal(t, "SetStream", calls[i-2])
			continue
		}
		assert.Equal(t, "SetStream", prev, "call %d (%s)", i, c)
	}
	assert.Equal(t, 6, ops)
	assert.Equal(t, testStream, rec.stream[h])
}

func TestBindFailureStopsOperation(t *testing.T) {
	rec := newRecorder()
	rec.fail["SetStream"] = StatusNotInitialized
	s := New(rec, nil)

	err := Gthr(s, 1, 1, []float32{1}, []float32{0}, []int32{0}, testStream)
	require.Error(t, err)
	assert.True(t, IsStatus(err, StatusNotInitialized))
	assert.Contains(t, err.Error(), "cusparseSetStream")
	assert.Equal(t, []string{"SetStream"}, rec.Calls())
}

func TestOperationFailureSurfaces(t *testing.T) {
	rec := newRecorder()
	rec.fail["Xcoo2csr"] = StatusMatrixTypeNotSupported
	sink := &captureSink{}
	s := New(rec, NewGuard(sink))

	err := Coo2Csr(s, 1, []int32{0}, 1, 1, make([]int32, 2), testStream)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuntime))
	assert.Contains(t, err.Error(), "CUSPARSE_STATUS_MATRIX_TYPE_NOT_SUPPORTED")
	assert.Contains(t, err.Error(), "cusparseXcoo2csr")
	require.Len(t, sink.events, 1)
	assert.Equal(t, StatusMatrixTypeNotSupported, sink.events[0].Status)
}

func TestCooSortBufferSizeIdempotent(t *testing.T) {
	s := New(NewHostRuntime(), nil)
	h, st := s.Runtime().Create()
	require.Equal(t, StatusSuccess, st)

	rows, cols := []int32{3, 1, 0, 2, 1, 0}, []int32{0, 1, 2, 3, 0, 1}
	first, err := CooSortBufferSize(s, h, 4, 4, 6, rows, cols, testStream)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, first, 0)
	second, err := CooSortBufferSize(s, h, 4, 4, 6, rows, cols, testStream)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []int32{3, 1, 0, 2, 1, 0}, rows, "query must not touch buffers")
}

func TestCooSortByRowScratchTooSmall(t *testing.T) {
	rec := newRecorder()
	s := New(rec, nil)
	rows, cols, perm := make([]int32, 6), make([]int32, 6), make([]int32, 6)

	err := CooSortByRow(s, 1, 4, 4, 6, rows, cols, perm, make([]byte, rec.size-1), testStream)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScratchTooSmall))
	assert.True(t, IsStatus(err, StatusInvalidValue))
	assert.NotContains(t, rec.Calls(), "XcoosortByRow")
}

func TestPreconditionsRejected(t *testing.T) {
	rec := newRecorder()
	s := New(rec, nil)

	err := Gthr(s, 1, 4, make([]float32, 3), make([]float32, 4), make([]int32, 4), testStream)
	assert.True(t, IsStatus(err, StatusInvalidValue))

	err = Coo2Csr(s, 1, []int32{0, 0, 1, 2}, 4, 3, make([]int32, 3), testStream)
	assert.True(t, IsStatus(err, StatusInvalidValue))

	err = Gemmi[float64](s, 1, 2, 2, 2, 1, 1, make([]float64, 4), 1, []float64{1}, []int32{0, 1, 1}, []int32{0}, 0, make([]float64, 4), 2)
	assert.True(t, IsStatus(err, StatusInvalidValue), "lda below m")

	for _, c := range rec.Calls() {
		assert.Equal(t, "SetStream", c)
	}
}
