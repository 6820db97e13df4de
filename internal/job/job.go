// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"sync"
	"time"
)

// Job represents a task that runs at a fixed interval and never overlaps with itself.
type Job struct {
	interval  time.Duration
	immediate bool
	task      func(context.Context)
}

// New creates a new Job with the given interval and task. The first run happens one interval
// after Start.
func New(interval time.Duration, task func(context.Context)) *Job {
	return &Job{
		interval: interval,
		task:     task,
	}
}

// NewImmediate creates a new Job that runs the task once right at Start and then at every interval.
func NewImmediate(interval time.Duration, task func(context.Context)) *Job {
	j := New(interval, task)
	j.immediate = true
	return j
}

// Start executes the job until the context is cancelled. If a tick fires while a previous run is
// still executing, that tick is skipped. Start returns only after the last run has finished, so
// callers may release resources the task uses once it returns.
func (j *Job) Start(ctx context.Context) {
	if j.task == nil || j.interval <= 0 {
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// sem is a 1-slot semaphore that guards "is a run in progress?"
	sem := make(chan struct{}, 1)
	var wg sync.WaitGroup
	defer wg.Wait()

	run := func() {
		select {
		case sem <- struct{}{}:
			wg.Go(func() {
				defer func() { <-sem }()
				runCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				j.task(runCtx)
			})
		default:
		}
	}

	if j.immediate {
		run()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
