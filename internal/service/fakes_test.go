package service

import (
	"context"
	"sync"

	"github.com/noah-isme/school-admin-api/internal/realtime"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func (p *recordingPublisher) Publish(event realtime.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ops() []realtime.Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.Op, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Op)
	}
	return out
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) {
	c.calls++
}
