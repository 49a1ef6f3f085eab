package sparse

import (
	"fmt"
	"log/slog"
)

// Backend names a Runtime implementation.
type Backend string

const (
	BackendHost Backend = "host"
	BackendCUDA Backend = "cuda"
)

// Open returns the runtime for backend. With fallback set, an unavailable
// CUDA backend degrades to the host runtime.
func Open(backend Backend, fallback bool) (Runtime, Backend, error) {
	switch backend {
	case BackendHost, "":
		return NewHostRuntime(), BackendHost, nil
	case BackendCUDA:
		rt, err := NewCUDARuntime()
		if err == nil {
			return rt, BackendCUDA, nil
		}
		if !fallback {
			return nil, "", err
		}
		slog.Warn("cuda runtime unavailable, using host runtime", "err", err)
		return NewHostRuntime(), BackendHost, nil
	default:
		return nil, "", fmt.Errorf("unknown sparse backend %q", backend)
	}
}
