package process

import (
	"fmt"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Job is the pollable record of one submitted pipeline run. Filename
// and Error are pointers so pollers see explicit nulls until the
// terminal state fills them in.
type Job struct {
	ID              string  `json:"-"`
	Status          Status  `json:"status"`
	Progress        float64 `json:"progress"`
	TotalFrames     int     `json:"total_frames"`
	ProcessedFrames int     `json:"processed_frames"`
	Filename        *string `json:"filename"`
	Error           *string `json:"error"`
	Cached          bool    `json:"cached"`
}

// newJobID combines a short uuid with the submission time. The random
// component keeps ids unique even for jobs submitted within the same
// clock second.
func newJobID() string {
	return fmt.Sprintf("%s_%d", shortuuid.New(), time.Now().Unix())
}

// registry is the in-memory job table, read by pollers and written by
// the worker that owns each job. Jobs are never removed: the table
// grows for the life of the process, a known resource-lifetime
// limitation carried over from the original design.
type registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newRegistry() *registry {
	return &registry{jobs: make(map[string]*Job)}
}

func (r *registry) add(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
}

// get returns a copy so pollers never share memory with the writer.
func (r *registry) get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (r *registry) update(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		fn(j)
	}
}

// setProgress records frame progress. Percent stays below 100 while the
// job is still processing; exactly 100 is reserved for completion.
func (r *registry) setProgress(id string, done, total int) {
	r.update(id, func(j *Job) {
		j.TotalFrames = total
		j.ProcessedFrames = done
		if total > 0 {
			pct := float64(done) / float64(total) * 100
			pct = float64(int(pct*10+0.5)) / 10
			if pct > 99.9 {
				pct = 99.9
			}
			if pct > j.Progress {
				j.Progress = pct
			}
		}
	})
}

func (r *registry) complete(id, filename string) {
	r.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Progress = 100
		j.Filename = &filename
	})
}

func (r *registry) fail(id, message string) {
	r.update(id, func(j *Job) {
		j.Status = StatusError
		j.Error = &message
	})
}
