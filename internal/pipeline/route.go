package pipeline

import (
	"context"
	"time"

	"github.com/pasis/pppoat2/internal/packet"
)

// flip toggles a packet's direction between Send and Recv; it is a
// no-op for Unknown. Applied at both sides of an inverting module per
// spec.md §4.3.1's direction-tagging policy.
func flip(d packet.Direction) packet.Direction {
	switch d {
	case packet.Send:
		return packet.Recv
	case packet.Recv:
		return packet.Send
	default:
		return d
	}
}

// route chases pkt across successive modules starting from the module
// at idx, advancing to idx+1 on a SEND packet and idx-1 on a RECV
// packet (spec.md §4.3.1). A module with invert=true sees (and
// produces) the opposite direction of the pipeline's own view. The
// chase ends when a module consumes the packet without producing a
// successor, when an edge is crossed with no next module (the packet
// is released), or on error. Process disposes of in itself on every
// path (see internal/module's Stage.Process ownership contract), so
// on error route only releases a partial out the callee returned and
// logs the error.
func (p *Pipeline) route(ctx context.Context, idx int, pkt *packet.Packet) {
	for pkt != nil {
		var nextIdx int
		if pkt.Direction == packet.Send {
			nextIdx = idx + 1
		} else {
			nextIdx = idx - 1
		}

		entries := p.Entries()
		if nextIdx < 0 || nextIdx >= len(entries) {
			p.pool.Put(pkt)
			return
		}

		entry := entries[nextIdx]
		in := pkt
		if entry.Invert {
			in.Direction = flip(in.Direction)
		}

		out, err := entry.Stage.Process(ctx, in)
		if err != nil {
			p.log.WithField("module", entry.Stage.Name()).WithError(err).Error("process failed, packet dropped")
			if out != nil {
				p.pool.Put(out)
			}
			return
		}

		if out != nil && entry.Invert {
			out.Direction = flip(out.Direction)
		}

		idx = nextIdx
		pkt = out
	}
}

// blockingWorker drives a blocking edge module (head or tail): while
// the pipeline runs, call Process(ctx, nil), which may suspend inside
// the module's own I/O, and chase any produced packet to completion.
// A non-recoverable error from Process causes this worker to exit;
// the pipeline keeps running its other workers (spec.md §4.6).
func (p *Pipeline) blockingWorker(ctx context.Context, idx int) {
	defer p.wg.Done()

	stage := p.Entries()[idx].Stage
	name := stage.Name()
	for p.isRunning() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out, err := stage.Process(ctx, nil)
		if err != nil {
			p.log.WithField("module", name).WithError(err).Error("blocking worker exiting on error")
			return
		}
		if out != nil {
			if p.Entries()[idx].Invert {
				out.Direction = flip(out.Direction)
			}
			p.route(ctx, idx, out)
		}
	}
}

// loopIdleBackoff bounds how long the cooperative loop sleeps after a
// full pass produces nothing, to avoid a tight busy-spin. Not
// spec-mandated; a pragmatic choice since nothing in spec.md specifies
// loop timing.
const loopIdleBackoff = 2 * time.Millisecond

// loopWorker iterates every non-blocking module once per cycle,
// head-to-tail, performing the same chase as blockingWorker for any
// packet produced. Blocking modules are skipped; they have their own
// worker.
func (p *Pipeline) loopWorker(ctx context.Context) {
	defer p.wg.Done()

	for p.isRunning() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		produced := false
		entries := p.Entries()
		for idx, e := range entries {
			if e.Stage.Blocking() {
				continue
			}
			out, err := e.Stage.Process(ctx, nil)
			if err != nil {
				p.log.WithField("module", e.Stage.Name()).WithError(err).Error("loop worker: module process failed")
				continue
			}
			if out != nil {
				produced = true
				if e.Invert {
					out.Direction = flip(out.Direction)
				}
				p.route(ctx, idx, out)
			}
		}

		if !produced {
			select {
			case <-ctx.Done():
				return
			case <-time.After(loopIdleBackoff):
			}
		}
	}
}
