package cli

import (
	"encoding/binary"
	"fmt"

	xxh3 "github.com/zeebo/xxh3"

	"github.com/qrv0/sparrow/internal/sparse"
)

// session is one opened runtime with a single handle.
type session struct {
	rt      sparse.Runtime
	backend sparse.Backend
	sp      *sparse.Sparse
	h       sparse.Handle
}

func (o *RootOptions) openRuntime() (sparse.Runtime, sparse.Backend, *sparse.Sparse, error) {
	cfg := o.config()
	rt, backend, err := sparse.Open(sparse.Backend(cfg.Backend), cfg.FallbackToHost)
	if err != nil {
		return nil, "", nil, WrapExitError(ExitCommandError, "open runtime", err)
	}
	var sink sparse.Sink = sparse.NopSink{}
	if cfg.Logging.ReportFailures {
		sink = sparse.LogSink{Logger: o.log()}
	}
	o.log().Debug("runtime opened", "backend", backend)
	return rt, backend, sparse.New(rt, sparse.NewGuard(sink)), nil
}

func (o *RootOptions) open() (*session, error) {
	rt, backend, sp, err := o.openRuntime()
	if err != nil {
		return nil, err
	}
	var h sparse.Handle
	if err := sp.Guard().Check("cusparseCreate(&handle)", func() sparse.Status {
		var st sparse.Status
		h, st = rt.Create()
		return st
	}); err != nil {
		return nil, WrapExitError(ExitCommandError, "create handle", err)
	}
	return &session{rt: rt, backend: backend, sp: sp, h: h}, nil
}

func (s *session) Close() {
	s.sp.Guard().Log("cusparseDestroy(handle)", func() sparse.Status { return s.rt.Destroy(s.h) })
}

// digest hashes slices of fixed-size numbers in little-endian order.
func digest(parts ...any) string {
	h := xxh3.New()
	for _, p := range parts {
		if err := binary.Write(h, binary.LittleEndian, p); err != nil {
			panic(fmt.Sprintf("digest: %v", err))
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
