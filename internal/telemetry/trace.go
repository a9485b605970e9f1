// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adriatichotels/channelbridge/internal/logging"
)

// Step is one named phase inside a trace.
type Step struct {
	Name      string        `json:"name"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Completed bool          `json:"completed"`
}

// Trace records the phases of one sync operation end to end.
type Trace struct {
	ID        string        `json:"id"`
	Operation string        `json:"operation"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Steps     []Step        `json:"steps"`
	Ended     bool          `json:"ended"`
}

// Tracer keeps a bounded map of in-flight and recently ended traces.
// Safe for concurrent use.
type Tracer struct {
	maxTraces int

	mu     sync.Mutex
	traces map[string]*Trace
	order  []string // insertion order, for eviction

	now func() time.Time
}

// NewTracer creates a tracer keeping at most maxTraces traces (default 200).
func NewTracer(maxTraces int) *Tracer {
	if maxTraces <= 0 {
		maxTraces = 200
	}
	return &Tracer{
		maxTraces: maxTraces,
		traces:    make(map[string]*Trace),
		now:       time.Now,
	}
}

// StartTrace begins a trace for one operation and returns its id.
func (t *Tracer) StartTrace(operation string) string {
	id := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()

	t.traces[id] = &Trace{ID: id, Operation: operation, StartedAt: t.now()}
	t.order = append(t.order, id)
	for len(t.order) > t.maxTraces {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.traces, oldest)
	}
	return id
}

// AddStep opens a named step on a trace. Unknown trace ids are ignored;
// a trace evicted mid-operation must not fail the operation.
func (t *Tracer) AddStep(id, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.traces[id]
	if !ok || tr.Ended {
		return
	}
	tr.Steps = append(tr.Steps, Step{Name: name, StartedAt: t.now()})
}

// CompleteStep closes the named open step, recording err when non-nil.
func (t *Tracer) CompleteStep(id, name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.traces[id]
	if !ok {
		return
	}
	for i := range tr.Steps {
		s := &tr.Steps[i]
		if s.Name == name && !s.Completed {
			s.Completed = true
			s.Duration = t.now().Sub(s.StartedAt)
			if err != nil {
				s.Error = err.Error()
			}
			return
		}
	}
}

// EndTrace closes a trace and returns it. Steps still open are
// force-closed so a panicking or short-circuited operation cannot leave a
// trace that looks in-flight forever.
func (t *Tracer) EndTrace(id string) *Trace {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.traces[id]
	if !ok {
		return nil
	}
	now := t.now()
	for i := range tr.Steps {
		s := &tr.Steps[i]
		if !s.Completed {
			s.Completed = true
			s.Duration = now.Sub(s.StartedAt)
			if s.Error == "" {
				s.Error = "step never completed"
			}
			logging.Debug().Str("trace", id).Str("step", s.Name).
				Msg("Force-closed open trace step")
		}
	}
	tr.Ended = true
	tr.Duration = now.Sub(tr.StartedAt)
	return tr
}

// Get returns a trace by id, or nil.
func (t *Tracer) Get(id string) *Trace {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.traces[id]
}

// Recent returns up to limit traces, newest first.
func (t *Tracer) Recent(limit int) []*Trace {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 || limit > len(t.order) {
		limit = len(t.order)
	}
	out := make([]*Trace, 0, limit)
	for i := len(t.order) - 1; i >= 0 && len(out) < limit; i-- {
		if tr, ok := t.traces[t.order[i]]; ok {
			out = append(out, tr)
		}
	}
	return out
}
