package training

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var errJobNotStarted = errors.New("training has not started")

// Status is a snapshot of a multi-model training run.
type Status struct {
	Models    []Kind `json:"models"`
	Current   Kind   `json:"current,omitempty"`
	Completed []Kind `json:"completed"`
	Failed    Kind   `json:"failed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Job tracks the progress of a sequence of Train calls for the ops
// endpoints. It is safe for concurrent use.
type Job struct {
	mu      sync.Mutex
	started bool
	status  Status
}

// NewJob returns a Job that will train kinds in order.
func NewJob(kinds []Kind) *Job {
	return &Job{status: Status{Models: slices.Clone(kinds), Completed: []Kind{}}}
}

// Start marks k as the model currently training.
func (j *Job) Start(k Kind) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started = true
	j.status.Current = k
}

// Finish records the outcome of training k.
func (j *Job) Finish(k Kind, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Current = ""
	if err != nil {
		j.status.Failed = k
		j.status.Error = err.Error()
		return
	}
	j.status.Completed = append(j.status.Completed, k)
}

// Status returns a copy of the current progress.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.status
	s.Models = slices.Clone(s.Models)
	s.Completed = slices.Clone(s.Completed)
	return s
}

// CheckReadiness reports ready once the first model has started and no
// model has failed.
func (j *Job) CheckReadiness(_ context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.started {
		return errJobNotStarted
	}
	if j.status.Failed != "" {
		return fmt.Errorf("training %s failed: %s", j.status.Failed, j.status.Error)
	}
	return nil
}
