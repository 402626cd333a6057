package process

import (
	"context"
	"log"
	"sync"
	"time"

	"vidfilter/filter"
)

// pregenQueue warms the cache ahead of demand: queued (source, style)
// pairs are submitted one at a time, each waiting for the previous job
// to reach a terminal state, so pre-generation never competes with
// itself for worker slots.
type pregenQueue struct {
	p *Processor

	mu      sync.Mutex
	items   []request
	running bool
	wake    chan struct{}
}

func newPregenQueue(p *Processor) *pregenQueue {
	return &pregenQueue{p: p, wake: make(chan struct{}, 1)}
}

// PregenAdd queues one (source, style) pair for pre-generation.
func (p *Processor) PregenAdd(source, style string) {
	p.pregen.add(source, style)
}

// PregenSamples queues every configured sample video with every
// available style. Returns the number of queued pairs.
func (p *Processor) PregenSamples() int {
	count := 0
	for _, source := range p.cfg.SampleVideos {
		for _, s := range filter.Styles() {
			p.pregen.add(source, s.ID)
			count++
		}
	}
	return count
}

// PregenStatus reports the queue length and whether an item is being
// processed right now.
func (p *Processor) PregenStatus() (queueLength int, isRunning bool) {
	p.pregen.mu.Lock()
	defer p.pregen.mu.Unlock()
	return len(p.pregen.items), p.pregen.running
}

func (q *pregenQueue) add(source, style string) {
	q.mu.Lock()
	q.items = append(q.items, request{source: source, style: filter.ParseStyle(style)})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *pregenQueue) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}

		for {
			item, ok := q.pop()
			if !ok {
				break
			}
			q.process(ctx, item)
		}
	}
}

func (q *pregenQueue) pop() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		q.running = false
		return request{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.running = true
	return item, true
}

// process submits one pair and polls until its job settles.
func (q *pregenQueue) process(ctx context.Context, item request) {
	jobID, err := q.p.Submit(item.source, string(item.style))
	if err != nil {
		log.Printf("Pre-generation submit failed for %s/%s: %v", item.source, item.style, err)
		return
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		j, ok := q.p.Status(jobID)
		if !ok || j.Status != StatusProcessing {
			if j.Status == StatusError && j.Error != nil {
				log.Printf("Pre-generation job %s failed: %s", jobID, *j.Error)
			}
			return
		}
	}
}
