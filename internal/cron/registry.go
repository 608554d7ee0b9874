package cron

import (
	"context"
	"slices"
)

// Job is one unit of scheduled work. Name doubles as the metrics label and
// must be unique within a Registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in run order.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in argument order.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends job. Nil jobs and repeated names are ignored and reported
// as false.
func (r *Registry) Register(job Job) bool {
	if job == nil {
		return false
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	name := job.Name()
	if _, dup := r.names[name]; dup {
		return false
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return true
}

// Len reports the number of registered jobs.
func (r *Registry) Len() int { return len(r.jobs) }

// Jobs returns a copy of the run order.
func (r *Registry) Jobs() []Job { return slices.Clone(r.jobs) }

func (r *Registry) Names() []string {
	out := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		out[i] = job.Name()
	}
	return out
}
