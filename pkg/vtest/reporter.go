package vtest

import "sync"

// Report is one failure captured by a Reporter.
type Report struct {
	Action string
	Key    string
	Err    error
}

// Reporter records effect failures. It satisfies optimistic.Reporter.
type Reporter struct {
	mu      sync.Mutex
	reports []Report
}

// Report records a failure.
func (r *Reporter) Report(action, key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Action: action, Key: key, Err: err})
}

// Reports returns a copy of everything recorded so far.
func (r *Reporter) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Len returns the number of recorded failures.
func (r *Reporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}
