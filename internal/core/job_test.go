package core

import "testing"

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{JobCompleted, JobFailed, JobTimeout, JobCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q expected terminal", s)
		}
	}
	nonTerminal := []JobStatus{JobQueued, JobProcessing}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%q expected non-terminal", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]JobStatus{
		{JobQueued, JobProcessing},
		{JobQueued, JobCancelled},
		{JobProcessing, JobCompleted},
		{JobProcessing, JobFailed},
		{JobProcessing, JobTimeout},
		{JobProcessing, JobCancelled},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("expected %q -> %q to be allowed", tr[0], tr[1])
		}
	}

	disallowed := [][2]JobStatus{
		{JobQueued, JobCompleted},
		{JobCompleted, JobProcessing},
		{JobCancelled, JobQueued},
		{JobFailed, JobQueued},
		{JobTimeout, JobProcessing},
	}
	for _, tr := range disallowed {
		if CanTransition(tr[0], tr[1]) {
			t.Errorf("expected %q -> %q to be disallowed", tr[0], tr[1])
		}
	}
}
