package main

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

type fakeOut struct {
	mu   sync.Mutex
	sent []midi.Message
}

func (f *fakeOut) Open() error             { return nil }
func (f *fakeOut) Close() error            { return nil }
func (f *fakeOut) IsOpen() bool            { return true }
func (f *fakeOut) Number() int             { return 0 }
func (f *fakeOut) String() string          { return "fake" }
func (f *fakeOut) Underlying() interface{} { return nil }

func (f *fakeOut) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, midi.Message(append([]byte(nil), data...)))
	return nil
}

func (f *fakeOut) messages() []midi.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]midi.Message(nil), f.sent...)
}

func TestSynthReleasesRetriggeredNote(t *testing.T) {
	out := &fakeOut{}
	syn := &Synth{out: out}

	syn.NoteOn(0, 60, 100)
	syn.NoteOn(0, 64, 90)
	syn.NoteOn(0, 64, 80)
	syn.NoteOff(0)
	syn.NoteOff(0)

	want := []midi.Message{
		midi.NoteOn(0, 60, 100),
		midi.NoteOff(0, 60),
		midi.NoteOn(0, 64, 90),
		midi.NoteOn(0, 64, 80),
		midi.NoteOff(0, 64),
	}
	if got := out.messages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
}

func TestGateQueueForwardsInOrder(t *testing.T) {
	out := &fakeOut{}
	syn := &Synth{out: out}
	gates := newGateQueue(syn)
	if newGateQueue(nil) != nil {
		t.Fatal("gate queue without a device")
	}

	gates.NoteOn(1, 48, 70)
	gates.NoteOff(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gates.run(ctx, syn)

	want := []midi.Message{midi.NoteOn(1, 48, 70), midi.NoteOff(1, 48)}
	deadline := time.Now().Add(time.Second)
	for !reflect.DeepEqual(out.messages(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("sent %v, want %v", out.messages(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGateQueueDropsWhenFull(t *testing.T) {
	gates := newGateQueue(&Synth{out: &fakeOut{}})
	for i := 0; i < gateQueueSize+3; i++ {
		gates.NoteOff(0)
	}
	if gates.dropped.Load() != 3 {
		t.Fatalf("dropped %d, want 3", gates.dropped.Load())
	}
}
