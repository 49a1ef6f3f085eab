package sparse

import "sync"

// recorder is a Runtime double that logs every entry point reached, in order.
type recorder struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]Status
	size   int
	stream map[Handle]Stream
}

func newRecorder() *recorder {
	return &recorder{fail: map[string]Status{}, size: 24, stream: map[Handle]Stream{}}
}

func (r *recorder) hit(name string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	return r.fail[name]
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Create() (Handle, Status) { return 1, r.hit("Create") }
func (r *recorder) Destroy(Handle) Status    { return r.hit("Destroy") }

func (r *recorder) SetStream(h Handle, s Stream) Status {
	r.mu.Lock()
	r.stream[h] = s
	r.mu.Unlock()
	return r.hit("SetStream")
}

func (r *recorder) Sgthr(Handle, int, []float32, []float32, []int32, IndexBase) Status {
	return r.hit("Sgthr")
}

func (r *recorder) Dgthr(Handle, int, []float64, []float64, []int32, IndexBase) Status {
	return r.hit("Dgthr")
}

func (r *recorder) Xcoo2csr(Handle, []int32, int, int, []int32, IndexBase) Status {
	return r.hit("Xcoo2csr")
}

func (r *recorder) XcoosortBufferSizeExt(Handle, int, int, int, []int32, []int32) (int, Status) {
	return r.size, r.hit("XcoosortBufferSizeExt")
}

func (r *recorder) XcoosortByRow(Handle, int, int, int, []int32, []int32, []int32, []byte) Status {
	return r.hit("XcoosortByRow")
}

func (r *recorder) Sgemmi(Handle, int, int, int, int, float32, []float32, int, []float32, []int32, []int32, float32, []float32, int) Status {
	return r.hit("Sgemmi")
}

func (r *recorder) Dgemmi(Handle, int, int, int, int, float64, []float64, int, []float64, []int32, []int32, float64, []float64, int) Status {
	return r.hit("Dgemmi")
}

// captureSink collects reported events.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Report(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}
