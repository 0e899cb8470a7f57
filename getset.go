package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gitlab.com/gomidi/midi/v2/drivers"

	"mbsidmcp/par"
	"mbsidmcp/partable"
	"mbsidmcp/patch"
	"mbsidmcp/sysex"
	"mbsidmcp/voice"
)

// Patch transfers in the get and set verbs use the first patch slot.
const (
	transferBank    = "A"
	transferProgram = 1
)

type paramValue struct {
	Number string `json:"number"`
	Label  string `json:"label"`
	Mode   string `json:"mode"`
	Value  uint16 `json:"value"`
	Signed bool   `json:"signed,omitempty"` // centred at half range
}

type patchJSON struct {
	Name       string       `json:"name"`
	Engine     string       `json:"engine"`
	Parameters []paramValue `json:"parameters"`
}

// parameterValues reads every patch-resident parameter for the voices
// selected by sidMask and ins.
func parameterValues(t *par.Target, sidMask, ins uint8) []paramValue {
	e := t.Patch.Engine()
	var out []paramValue
	for num, ent := range partable.Entries(e) {
		d := partable.Describe(ent.Mode)
		switch d.Shape {
		case partable.ShapeBits, partable.ShapeSwitch:
		default:
			continue
		}
		out = append(out, paramValue{
			Number: fmt.Sprintf("0x%02x", num),
			Label:  ent.Label(),
			Mode:   ent.Mode.String(),
			Value:  t.Get(uint8(num), sidMask, ins, false),
			Signed: d.Signed,
		})
	}
	return out
}

// applyParameters writes native values keyed by parameter number, in
// ascending parameter order.
func applyParameters(t *par.Target, values map[string]any, sidMask, ins uint8) error {
	type write struct {
		num uint8
		v   uint16
	}
	var writes []write
	for k, raw := range values {
		num, err := parseParam(k)
		if err != nil {
			return err
		}
		v, err := cast.ToUint16E(raw)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", k, err)
		}
		writes = append(writes, write{num, v})
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].num < writes[j].num })
	for _, w := range writes {
		t.Set(w.num, w.v, sidMask, ins)
	}
	return nil
}

// parseParam accepts decimal or 0x-prefixed parameter numbers.
func parseParam(s string) (uint8, error) {
	n, err := cast.ToUint64E(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || n > 0xff {
		return 0, fmt.Errorf("invalid parameter number %q", s)
	}
	return uint8(n), nil
}

func patchDocument(store *patch.Store) patchJSON {
	t := &par.Target{Patch: store, Voices: voice.NewBank(store.Engine())}
	return patchJSON{
		Name:       store.Live().Name(),
		Engine:     store.Engine().String(),
		Parameters: parameterValues(t, 1, 0),
	}
}

// getPatch prints the parameters of a patch read from a file, from the
// device or, without either, from the configured patch.
func getPatch(store *patch.Store, syn *Synth, in drivers.In, args []string) {
	switch {
	case len(args) > 0:
		d, err := sysex.ReadFile(args[0])
		if err != nil {
			log.Fatalf("failed to read patch: %v", err)
		}
		loadImage(store, d.Image)
	case syn != nil && in != nil:
		d, err := syn.RequestPatch(in, transferBank, transferProgram)
		if err != nil {
			log.Fatalf("failed to read patch: %v", err)
		}
		loadImage(store, d.Image)
		log.Printf("Read patch from Bank %s, Program %d (device 0x%02X)", transferBank, transferProgram, d.Device)
	}
	log.Println("Patch name", store.Live().Name())

	asJson, err := json.MarshalIndent(patchDocument(store), "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal patch to JSON: %v", err)
	}
	fmt.Println(string(asJson))
}

// setPatch applies {"0x04": 2048, ...} from stdin to the configured patch
// and writes the result to a file or the device.
func setPatch(store *patch.Store, syn *Synth, args []string) {
	asJson, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("failed to read parameter JSON from stdin: %v", err)
	}

	var values map[string]any
	if err := json.Unmarshal(asJson, &values); err != nil {
		log.Fatalf("failed to unmarshal parameter JSON: %v", err)
	}

	t := &par.Target{Patch: store, Voices: voice.NewBank(store.Engine())}
	if err := applyParameters(t, values, 3, 0); err != nil {
		log.Fatalf("failed to apply parameters: %v", err)
	}

	switch {
	case len(args) > 0:
		if err := sysex.WriteFile(args[0], deviceID, 0, 0, store.Snapshot()); err != nil {
			log.Fatalf("failed to write patch: %v", err)
		}
	case syn != nil:
		if err := syn.SendPatch(transferBank, transferProgram, store.Snapshot()); err != nil {
			log.Fatalf("failed to send patch: %v", err)
		}
	default:
		log.Fatalf("no output: give a .syx path or connect a device")
	}
}
