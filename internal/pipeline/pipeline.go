// Package pipeline implements the ordered module chain: packet routing
// by direction, the blocking/cooperative-loop worker model, and the
// start/stop discipline.
//
// Grounded on original_source/src/pipeline.c/pipeline.h. The original's
// module list is an intrusive pppoat_list; here it is a plain slice of
// *Entry, per DESIGN NOTES' "ordered sequences with allocator-owned
// nodes" guidance. Thread cancellation is reformulated as
// context.CancelFunc threaded through every Stage.Run/Process call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/module"
	"github.com/pasis/pppoat2/internal/packet"
)

// ErrNotRunning names the state of a pipeline that has not been
// started. No method of Pipeline returns it: Stop on a pipeline that is
// not running is a no-op.
var ErrNotRunning = errors.New("pipeline: not running")

// Entry pairs a stage with its computed invert flag.
type Entry struct {
	Stage  module.Stage
	Invert bool
}

// Pipeline is an ordered sequence of modules. Head and tail must be
// INTERFACE or TRANSPORT; every middle module must be PLUGIN;
// modules_nr >= 2 at Start.
type Pipeline struct {
	mu      sync.Mutex
	entries []*Entry
	pool    *packet.Pool
	running bool

	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logrus.Entry
}

// New returns an empty pipeline backed by pool, whose Get/Put calls
// every stage's Process implementation is expected to use when
// producing or releasing packets.
func New(pool *packet.Pool, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{pool: pool, log: log}
}

// Add appends stage to the pipeline, computing its invert flag per
// spec.md §4.3.3: when the pipeline currently holds exactly one
// module, adding an INTERFACE stage while the existing sole module is
// also INTERFACE produces a loopback topology (the newly added tail
// inverts); when the existing sole module is TRANSPORT, adding any
// stage produces a gateway topology (the original head inverts).
func (p *Pipeline) Add(stage module.Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := &Entry{Stage: stage}

	if len(p.entries) == 1 {
		first := p.entries[0]
		switch {
		case stage.Kind() == module.Interface && first.Stage.Kind() == module.Interface:
			entry.Invert = true
		case first.Stage.Kind() == module.Transport:
			first.Invert = true
		}
	}

	p.entries = append(p.entries, entry)
}

// Entries returns a snapshot of the current module chain.
func (p *Pipeline) Entries() []*Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Pipeline) validate() error {
	if len(p.entries) < 2 {
		return fmt.Errorf("pipeline: need at least 2 modules, have %d", len(p.entries))
	}
	head := p.entries[0].Stage
	tail := p.entries[len(p.entries)-1].Stage
	if head.Kind() == module.Plugin {
		return fmt.Errorf("pipeline: head module %q must not be a plugin", head.Name())
	}
	if tail.Kind() == module.Plugin {
		return fmt.Errorf("pipeline: tail module %q must not be a plugin", tail.Name())
	}
	for _, e := range p.entries[1 : len(p.entries)-1] {
		if e.Stage.Kind() != module.Plugin {
			return fmt.Errorf("pipeline: middle module %q must be a plugin", e.Stage.Name())
		}
	}
	return nil
}

// Start validates the module list invariants, runs Init/Run on every
// stage in head-to-tail order, and spawns the worker goroutines per
// spec.md §4.3.2: one per blocking edge module, plus one cooperative
// loop worker if any non-blocking module is present.
func (p *Pipeline) Start(ctx context.Context, conf *config.Store) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("pipeline: already running")
	}
	if err := p.validate(); err != nil {
		return err
	}

	for _, e := range p.entries {
		if err := e.Stage.Init(conf, p.pool); err != nil {
			return fmt.Errorf("pipeline: init %s: %w", e.Stage.Name(), err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for _, e := range p.entries {
		if err := e.Stage.Run(runCtx); err != nil {
			cancel()
			return fmt.Errorf("pipeline: run %s: %w", e.Stage.Name(), err)
		}
	}

	p.running = true

	head := p.entries[0]
	tail := p.entries[len(p.entries)-1]

	if head.Stage.Blocking() {
		p.wg.Add(1)
		go p.blockingWorker(runCtx, 0)
	}
	if tail.Stage.Blocking() && len(p.entries) > 1 {
		p.wg.Add(1)
		go p.blockingWorker(runCtx, len(p.entries)-1)
	}

	needsLoop := !head.Stage.Blocking() || !tail.Stage.Blocking() || len(p.entries) > 2
	if needsLoop {
		p.wg.Add(1)
		go p.loopWorker(runCtx)
	}

	return nil
}

// Stop sets running=false, cancels the shared context (the
// reformulated thread-cancel primitive), calls every stage's Stop,
// waits for all worker goroutines to return, then fini's every stage.
// The workers are awaited together through one WaitGroup; no join
// order among the loop, tail and head workers is imposed.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	entries := p.entries
	p.mu.Unlock()

	cancel()

	for _, e := range entries {
		if err := e.Stage.Stop(); err != nil {
			p.log.WithField("module", e.Stage.Name()).WithError(err).Warn("stop returned an error")
		}
	}

	p.wg.Wait()

	for _, e := range entries {
		e.Stage.Fini()
	}
}

func (p *Pipeline) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
