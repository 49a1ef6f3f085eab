package sparse

// Status is the result code returned by every native sparse runtime call.
type Status int32

const (
	StatusSuccess                Status = 0
	StatusNotInitialized         Status = 1
	StatusAllocFailed            Status = 2
	StatusInvalidValue           Status = 3
	StatusArchMismatch           Status = 4
	StatusMappingError           Status = 5
	StatusExecutionFailed        Status = 6
	StatusInternalError          Status = 7
	StatusMatrixTypeNotSupported Status = 8
	StatusZeroPivot              Status = 9
	StatusNotSupported           Status = 10
	StatusInsufficientResources  Status = 11
)

// UnknownStatusName is returned for codes outside the enumeration.
const UnknownStatusName = "CUSPARSE_STATUS_UNKNOWN"

var statusNames = [...]string{
	StatusSuccess:                "CUSPARSE_STATUS_SUCCESS",
	StatusNotInitialized:         "CUSPARSE_STATUS_NOT_INITIALIZED",
	StatusAllocFailed:            "CUSPARSE_STATUS_ALLOC_FAILED",
	StatusInvalidValue:           "CUSPARSE_STATUS_INVALID_VALUE",
	StatusArchMismatch:           "CUSPARSE_STATUS_ARCH_MISMATCH",
	StatusMappingError:           "CUSPARSE_STATUS_MAPPING_ERROR",
	StatusExecutionFailed:        "CUSPARSE_STATUS_EXECUTION_FAILED",
	StatusInternalError:          "CUSPARSE_STATUS_INTERNAL_ERROR",
	StatusMatrixTypeNotSupported: "CUSPARSE_STATUS_MATRIX_TYPE_NOT_SUPPORTED",
	StatusZeroPivot:              "CUSPARSE_STATUS_ZERO_PIVOT",
	StatusNotSupported:           "CUSPARSE_STATUS_NOT_SUPPORTED",
	StatusInsufficientResources:  "CUSPARSE_STATUS_INSUFFICIENT_RESOURCES",
}

// String returns the runtime's symbolic name for s. It never fails.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return UnknownStatusName
	}
	return statusNames[s]
}

// OK reports whether s is the success sentinel.
func (s Status) OK() bool { return s == StatusSuccess }

// Known reports whether s belongs to the enumeration.
func (s Status) Known() bool { return s >= 0 && int(s) < len(statusNames) }

// Statuses lists every known status in code order.
func Statuses() []Status {
	out := make([]Status, len(statusNames))
	for i := range statusNames {
		out[i] = Status(i)
	}
	return out
}
