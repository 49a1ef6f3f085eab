package sparse

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSuccess(t *testing.T) {
	calls := 0
	err := Check("noop()", func() Status { calls++; return StatusSuccess })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCheckFailure(t *testing.T) {
	calls := 0
	err := Check("cusparseDgthr(handle)", func() Status { calls++; return StatusExecutionFailed })
	require.Error(t, err)
	assert.Equal(t, 1, calls, "no retry")

	assert.Contains(t, err.Error(), "CUSPARSE_STATUS_EXECUTION_FAILED")
	assert.Contains(t, err.Error(), "Reason=6:")
	assert.Contains(t, err.Error(), "call='cusparseDgthr(handle)'")

	assert.True(t, errors.Is(err, ErrRuntime))
	assert.True(t, IsRuntimeError(err))
	assert.True(t, IsStatus(err, StatusExecutionFailed))

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "cusparseDgthr(handle)", se.Call)
	assert.Equal(t, StatusExecutionFailed, se.Status)
	assert.Equal(t, "CUSPARSE_STATUS_EXECUTION_FAILED", se.Name())
}

func TestCheckWrapped(t *testing.T) {
	err := fmt.Errorf("sort stage: %w", Check("x()", func() Status { return StatusAllocFailed }))
	st, ok := StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, StatusAllocFailed, st)

	_, ok = StatusOf(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, errors.Is(errors.New("plain"), ErrRuntime))
}

func TestCheckUnknownStatus(t *testing.T) {
	err := Check("x()", func() Status { return 77 })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Reason=77:"+UnknownStatusName)
}

func TestGuardSink(t *testing.T) {
	sink := &captureSink{}
	g := NewGuard(sink)

	require.NoError(t, g.Check("ok()", func() Status { return StatusSuccess }))
	assert.Empty(t, sink.events)

	require.Error(t, g.Check("bad()", func() Status { return StatusArchMismatch }))
	require.Len(t, sink.events, 1)
	assert.Equal(t, Event{Call: "bad()", Status: StatusArchMismatch, Raised: true}, sink.events[0])
}

func TestGuardLog(t *testing.T) {
	sink := &captureSink{}
	g := NewGuard(sink)

	st := g.Log("bad()", func() Status { return StatusInternalError })
	assert.Equal(t, StatusInternalError, st)
	require.Len(t, sink.events, 1)
	assert.False(t, sink.events[0].Raised)

	assert.Equal(t, StatusSuccess, g.Log("ok()", func() Status { return StatusSuccess }))
	assert.Len(t, sink.events, 1)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	g := NewGuard(LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))})

	_ = g.Check("cusparseSetStream(handle, stream)", func() Status { return StatusNotInitialized })
	out := buf.String()
	assert.Contains(t, out, "cusparse call failed")
	assert.Contains(t, out, "status=CUSPARSE_STATUS_NOT_INITIALIZED")
	assert.Contains(t, out, "code=1")
}

func TestZeroGuard(t *testing.T) {
	var g Guard
	assert.Error(t, g.Check("x()", func() Status { return StatusInvalidValue }))
	var nilGuard *Guard
	assert.Equal(t, StatusInvalidValue, nilGuard.Log("x()", func() Status { return StatusInvalidValue }))
}
