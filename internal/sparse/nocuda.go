//go:build !cuda

package sparse

import "errors"

// CUDA fallback (no cuda build tag)

func Available() bool { return false }

func NewCUDARuntime() (Runtime, error) {
	return nil, errors.New("cusparse support not built; rebuild with -tags cuda")
}
