package sim

import (
	"context"
	"fmt"
	"sync"
)

// Job is one independent flight of a batch. Build is called on the job's
// own goroutine and must return a simulator that shares no state with the
// other jobs.
type Job struct {
	Name   string
	Build  func() (*Simulator, error)
	Config Config
}

// Batch flies several jobs concurrently.
type Batch struct {
	jobs []Job
}

func NewBatch(jobs ...Job) *Batch {
	return &Batch{jobs: jobs}
}

func (b *Batch) Add(j Job) { b.jobs = append(b.jobs, j) }

// Run returns one result per job, in job order. The first error wins.
func (b *Batch) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(b.jobs))
	errs := make([]error, len(b.jobs))

	var wg sync.WaitGroup
	for i, job := range b.jobs {
		wg.Add(1)
		go func(idx int, job Job) {
			defer wg.Done()

			s, err := job.Build()
			if err != nil {
				errs[idx] = fmt.Errorf("%s: %w", job.Name, err)
				return
			}
			results[idx], err = s.Run(ctx, job.Config)
			if err != nil {
				errs[idx] = fmt.Errorf("%s: %w", job.Name, err)
			}
		}(i, job)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
