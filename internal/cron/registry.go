package cron

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
)

// Job is one maintenance task executed per cron cycle. Names label logs and
// metrics, so they must be unique within a registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order.
type Registry struct {
	ordered []Job
	byName  map[string]struct{}
}

// NewRegistry registers jobs in order, skipping nils.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: map[string]struct{}{}}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends job. Blank and repeated names are rejected.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "cron job name required")
	}
	if r.byName == nil {
		r.byName = map[string]struct{}{}
	}
	if _, taken := r.byName[name]; taken {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("cron job %q registered twice", name))
	}
	r.byName[name] = struct{}{}
	r.ordered = append(r.ordered, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	if r == nil {
		return nil
	}
	return append([]Job(nil), r.ordered...)
}
