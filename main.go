package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/sync/errgroup"

	"mbsidmcp/config"
	"mbsidmcp/dispatch"
	"mbsidmcp/engine"
	"mbsidmcp/midiin"
	"mbsidmcp/patch"
)

// MIDIbox SID device ID of the first core.
const deviceID byte = 0x00

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, err := loadStore(cfg)
	if err != nil {
		log.Fatalf("failed to load patch: %v", err)
	}

	if len(os.Args) < 2 {
		log.Println("exiting: no command specified (table, get, set, play, listen, mcp)")
		return
	}
	args := os.Args[2:]

	switch os.Args[1] {
	case "table":
		e := store.Engine()
		if len(args) > 0 {
			var ok bool
			if e, ok = patch.ParseEngine(args[0]); !ok {
				log.Fatalf("unknown engine %q", args[0])
			}
		}
		fmt.Print(renderTable(e, true))
		return
	case "play":
		syn, _, closer := openDevice(cfg)
		defer closer()
		if err := playVerb(cfg, store, syn, strings.Join(args, " ")); err != nil {
			log.Fatalf("failed to play: %v", err)
		}
		return
	case "get":
		syn, in, closer := openDevice(cfg)
		defer closer()
		getPatch(store, syn, in, args)
		return
	case "set":
		syn, _, closer := openDevice(cfg)
		defer closer()
		setPatch(store, syn, args)
		return
	case "listen":
		syn, in, closer := openDevice(cfg)
		defer closer()
		if in == nil {
			log.Fatalf("no MIDI input contains %q", cfg.Port)
		}
		serve(cfg, store, syn, in, nil)
		return
	case "mcp":
		syn, in, closer := openDevice(cfg)
		defer closer()
		serve(cfg, store, syn, in, runMCP)
		return
	default:
		log.Fatalf("unknown command %q", os.Args[1])
	}
}

// openDevice opens the ports matching the configured name. Missing ports
// leave the returned values nil.
func openDevice(cfg config.Config) (*Synth, drivers.In, func()) {
	log.Println("Available MIDI outputs:")
	log.Print(midi.GetOutPorts().String())

	var in drivers.In
	if idx, err := findInPort(cfg.Port); err != nil {
		log.Printf("[midi] %v", err)
	} else {
		in = midi.GetInPorts()[idx]
	}

	portIdx, err := findOutPort(cfg.Port)
	if err != nil {
		log.Printf("[midi] %v", err)
		return nil, in, func() {}
	}
	syn, closer, err := OpenSynth(deviceID, portIdx)
	if err != nil {
		log.Printf("[midi] failed to open output: %v", err)
		return nil, in, func() {}
	}
	return syn, in, closer
}

func newCore(cfg config.Config, store *patch.Store, gates *gateQueue) *engine.Core {
	cc, _ := cfg.CCMap()
	var obs dispatch.Trigger
	if gates != nil {
		obs = gates
	}
	return engine.New(store, engine.Options{
		QueueSize: cfg.Queue,
		UpdateHz:  cfg.UpdateHz,
		BPM:       cfg.BPM,
		Channels:  cfg.MIDIChannels(),
		Splits:    cfg.Splits(),
		DrumBase:  uint8(cfg.DrumBaseNote),
		CC:        cc,
		Patches:   library{dir: cfg.Library},
		Observer:  obs,
	})
}

// serve runs the engine, the MIDI listener and front until one of them
// fails or the process is interrupted.
func serve(cfg config.Config, store *patch.Store, syn *Synth, in drivers.In,
	front func(ctx context.Context, core *engine.Core, syn *Synth, in drivers.In) error) {
	gates := newGateQueue(syn)
	core := newCore(cfg, store, gates)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return core.Run(ctx)
	})
	if gates != nil {
		g.Go(func() error {
			return gates.run(ctx, syn)
		})
	}

	if in != nil {
		stop, err := midiin.Listen(in, core.Post)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}
		defer stop()
	}

	if front != nil {
		g.Go(func() error {
			defer cancel()
			return front(ctx, core, syn, in)
		})
	} else {
		g.Go(func() error {
			return watchVoices(ctx, core)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("stopped: %v", err)
	}
	if n := core.Dropped(); n > 0 {
		log.Printf("[engine] %d events dropped", n)
	}
}

func findOutPort(nameFragment string) (int, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return -1, fmt.Errorf("no MIDI outputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI output contains %q", nameFragment)
}

func findInPort(nameFragment string) (int, error) {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return -1, fmt.Errorf("no MIDI inputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), lower) {
			return in.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI input contains %q", nameFragment)
}

func bankToByte(bank string) (byte, error) {
	if bank == "" {
		return 0, errors.New("bank must not be empty")
	}
	ch := strings.ToUpper(bank)[0]
	if ch < 'A' || ch > 'H' {
		return 0, fmt.Errorf("bank must be A–H, got %q", bank)
	}
	return byte(ch - 'A'), nil
}
