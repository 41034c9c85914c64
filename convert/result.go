package convert

import (
	"sync"
	"time"
)

type Outcome int

const (
	Skipped Outcome = iota
	Succeeded
	Failed
	Missing
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "success"
	case Failed:
		return "fail"
	case Missing:
		return "missing"
	default:
		return "skipped"
	}
}

// Result is the outcome of one action on one file.
type Result struct {
	Path       string
	Output     string
	Action     Action
	Outcome    Outcome
	Err        error
	InputSize  int64
	OutputSize int64
	Width      int
	Height     int
	Elapsed    time.Duration
}

type Summary struct {
	Seen        int
	Succeeded   int
	Failed      int
	Skipped     int
	Missing     int
	InputBytes  int64
	OutputBytes int64
}

// Acted is the number of files an action was actually attempted on.
func (s Summary) Acted() int {
	return s.Succeeded + s.Failed
}

// Stats accumulates results for one batch. It is safe for concurrent use.
type Stats struct {
	mu sync.Mutex
	s  Summary
}

func (st *Stats) Record(r Result) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.Seen++
	switch r.Outcome {
	case Succeeded:
		st.s.Succeeded++
		st.s.InputBytes += r.InputSize
		st.s.OutputBytes += r.OutputSize
	case Failed:
		st.s.Failed++
	case Missing:
		st.s.Missing++
	default:
		st.s.Skipped++
	}
}

func (st *Stats) Snapshot() Summary {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// Reset returns the accumulated summary and starts a new one.
func (st *Stats) Reset() Summary {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.s
	st.s = Summary{}
	return s
}
