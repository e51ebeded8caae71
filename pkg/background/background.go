// Package background gives the validation engine an explicit handle for
// work that must outlive the request that triggered it — the threat
// report and the metadata audit (spec-mandated "fire and forget" work).
// Neither goroutine leak nor implicit process backgrounding is acceptable
// here: every detached call is registered with a Group so the process can
// wait for it to drain on shutdown.
package background

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Group runs detached work bound to context.Background() rather than the
// context of the request that spawned it, and tracks it so the process
// can drain in-flight work before exiting. It implements
// guardrail.BackgroundGroup.
type Group struct {
	eg *errgroup.Group
}

// NewGroup constructs an empty Group. One Group is shared process-wide;
// the batch processor and the HTTP handlers all register detached work
// on the same instance so a single Wait drains everything at shutdown.
func NewGroup() *Group {
	return &Group{eg: &errgroup.Group{}}
}

// Go runs fn detached from the caller's context. fn must treat ctx as
// long-lived — it is context.Background(), not the request context — and
// is expected to swallow its own errors (the threat reporter and metadata
// auditor already log and never propagate failures).
func (g *Group) Go(fn func(context.Context)) {
	g.eg.Go(func() error {
		fn(context.Background())
		return nil
	})
}

// Wait blocks until every Go call registered so far has returned. Used at
// shutdown to give in-flight threat reports and metadata audits a chance
// to finish instead of being killed mid-flight.
func (g *Group) Wait() error {
	return g.eg.Wait()
}
