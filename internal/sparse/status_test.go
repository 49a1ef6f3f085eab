package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusSuccess, "CUSPARSE_STATUS_SUCCESS"},
		{StatusNotInitialized, "CUSPARSE_STATUS_NOT_INITIALIZED"},
		{StatusAllocFailed, "CUSPARSE_STATUS_ALLOC_FAILED"},
		{StatusInvalidValue, "CUSPARSE_STATUS_INVALID_VALUE"},
		{StatusArchMismatch, "CUSPARSE_STATUS_ARCH_MISMATCH"},
		{StatusExecutionFailed, "CUSPARSE_STATUS_EXECUTION_FAILED"},
		{StatusInternalError, "CUSPARSE_STATUS_INTERNAL_ERROR"},
		{StatusMatrixTypeNotSupported, "CUSPARSE_STATUS_MATRIX_TYPE_NOT_SUPPORTED"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
			assert.Equal(t, tt.want, tt.status.String(), "lookup must be stable")
		})
	}
}

func TestStatusStringCoversEnumeration(t *testing.T) {
	seen := map[string]Status{}
	for _, st := range Statuses() {
		name := st.String()
		assert.NotEmpty(t, name)
		assert.NotEqual(t, UnknownStatusName, name, "status %d", st)
		if prev, dup := seen[name]; dup {
			t.Errorf("status %d and %d share name %s", prev, st, name)
		}
		seen[name] = st
		assert.True(t, st.Known())
	}
}

func TestStatusStringUnknown(t *testing.T) {
	for _, st := range []Status{-1, 12, 99, 1 << 30} {
		assert.Equal(t, UnknownStatusName, st.String(), "status %d", st)
		assert.False(t, st.Known())
	}
}

func TestStatusOK(t *testing.T) {
	assert.True(t, StatusSuccess.OK())
	assert.False(t, StatusInternalError.OK())
}
