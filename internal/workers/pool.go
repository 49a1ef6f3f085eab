package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/qrv0/sparrow/internal/sparse"
)

// ErrClosed is returned by Take after Close.
var ErrClosed = errors.New("handle pool closed")

// Worker is a handle checked out for exclusive use together with the stream
// the holder should bind.
type Worker struct {
	Handle sparse.Handle
	Stream sparse.Stream
}

// Pool owns a fixed set of handles and hands each to one goroutine at a time,
// so the bind-then-issue sequence on a handle is never interleaved.
type Pool struct {
	rt      sparse.Runtime
	free    chan Worker
	all     []Worker
	closeMu sync.Mutex
	closed  bool
	done    chan struct{}
}

// NewPool creates size handles on rt. streams, if given, are assigned
// round-robin; otherwise every worker uses DefaultStream.
func NewPool(rt sparse.Runtime, size int, streams ...sparse.Stream) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	p := &Pool{rt: rt, free: make(chan Worker, size), done: make(chan struct{})}
	for i := 0; i < size; i++ {
		var h sparse.Handle
		if err := sparse.Check("cusparseCreate(&handle)", func() sparse.Status {
			var st sparse.Status
			h, st = rt.Create()
			return st
		}); err != nil {
			p.destroy()
			return nil, err
		}
		w := Worker{Handle: h, Stream: sparse.DefaultStream}
		if len(streams) > 0 {
			w.Stream = streams[i%len(streams)]
		}
		p.all = append(p.all, w)
		p.free <- w
	}
	return p, nil
}

// Size reports the number of handles.
func (p *Pool) Size() int { return cap(p.free) }

// Take blocks until a worker is free, ctx is done, or the pool closes.
func (p *Pool) Take(ctx context.Context) (Worker, error) {
	select {
	case <-p.done:
		return Worker{}, ErrClosed
	default:
	}
	select {
	case w := <-p.free:
		return w, nil
	case <-ctx.Done():
		return Worker{}, ctx.Err()
	case <-p.done:
		return Worker{}, ErrClosed
	}
}

// Put returns w to the pool.
func (p *Pool) Put(w Worker) {
	p.free <- w
}

// Run executes jobs concurrently, each on an exclusively held worker. The
// first error cancels the remaining jobs and is returned.
func (p *Pool) Run(ctx context.Context, jobs []func(context.Context, Worker) error) error {
	p.closeMu.Lock()
	closed := p.closed
	p.closeMu.Unlock()
	if closed {
		return ErrClosed
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Size())
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			w, err := p.Take(ctx)
			if err != nil {
				return err
			}
			defer p.Put(w)
			return job(ctx, w)
		})
	}
	return g.Wait()
}

// Close destroys every handle. Workers still checked out must not be used
// afterwards.
func (p *Pool) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	return p.destroy()
}

func (p *Pool) destroy() error {
	var errs []error
	for _, w := range p.all {
		h := w.Handle
		if err := sparse.Check("cusparseDestroy(handle)", func() sparse.Status { return p.rt.Destroy(h) }); err != nil {
			errs = append(errs, err)
		}
	}
	p.all = nil
	return errors.Join(errs...)
}
