package main

import (
	"context"
	"log"
	"sync/atomic"

	"mbsidmcp/dispatch"
)

const gateQueueSize = 256

type gate struct {
	voice    int
	note     uint8
	velocity uint8
	on       bool
}

// gateQueue takes gate events from the engine without blocking. run hands
// them to the device on its own goroutine.
type gateQueue struct {
	events  chan gate
	dropped atomic.Uint64
}

// newGateQueue returns nil without a device.
func newGateQueue(syn *Synth) *gateQueue {
	if syn == nil {
		return nil
	}
	return &gateQueue{events: make(chan gate, gateQueueSize)}
}

func (q *gateQueue) NoteOn(v int, note, velocity uint8) {
	q.push(gate{voice: v, note: note, velocity: velocity, on: true})
}

func (q *gateQueue) NoteOff(v int) {
	q.push(gate{voice: v})
}

func (q *gateQueue) push(g gate) {
	select {
	case q.events <- g:
	default:
		if n := q.dropped.Add(1); n == 1 || n%1000 == 0 {
			log.Printf("[midi] gate queue full, %d gate events dropped", n)
		}
	}
}

// run forwards queued gates to out until ctx is done.
func (q *gateQueue) run(ctx context.Context, out dispatch.Trigger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case g := <-q.events:
			if g.on {
				out.NoteOn(g.voice, g.note, g.velocity)
			} else {
				out.NoteOff(g.voice)
			}
		}
	}
}
