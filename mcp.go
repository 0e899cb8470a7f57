package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gitlab.com/gomidi/midi/v2/drivers"

	"mbsidmcp/engine"
	"mbsidmcp/partable"
	"mbsidmcp/patch"
	"mbsidmcp/sysex"
	"mbsidmcp/voice"
)

// tools holds what the MCP handlers act on. syn and in may be nil when no
// device is connected.
type tools struct {
	core *engine.Core
	syn  *Synth
	in   drivers.In
}

func runMCP(ctx context.Context, core *engine.Core, syn *Synth, in drivers.In) error {
	s := newMCPServer(&tools{core: core, syn: syn, in: in})
	log.Println("Starting MIDIbox SID MCP server...")
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func newMCPServer(t *tools) *server.MCPServer {
	s := server.NewMCPServer(
		"MIDIbox SID MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("mbsid_describe-parameters",
		mcp.WithDescription("Lists the parameter numbers of a sound engine with label, addressing mode, patch address and resolution."),
		mcp.WithString("engine", mcp.Description("lead, bassline, drum or multi. Defaults to the engine of the loaded patch.")),
	), t.describeParameters)

	s.AddTool(mcp.NewTool("mbsid_get-parameter",
		mcp.WithDescription("Reads a parameter of the loaded patch as its native value."),
		mcp.WithString("number", mcp.Required(), mcp.Description("Parameter number, decimal or 0x-prefixed (e.g. 0x04).")),
		mcp.WithNumber("sid", mcp.Description("SID channel mask: 1 left, 2 right, 3 both. Default 1.")),
		mcp.WithNumber("instrument", mcp.Description("Instrument, drum or MIDI voice for selected-voice parameters (0-based).")),
		mcp.WithBoolean("shadow", mcp.Description("Read the last synchronised copy instead of the live patch.")),
	), t.getParameter)

	s.AddTool(mcp.NewTool("mbsid_set-parameter",
		mcp.WithDescription("Writes a parameter of the loaded patch. The value is native unless scaled is set, then it is a 16-bit value down-scaled to the parameter resolution."),
		mcp.WithString("number", mcp.Required(), mcp.Description("Parameter number, decimal or 0x-prefixed (e.g. 0x04).")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Value to write.")),
		mcp.WithNumber("sid", mcp.Description("SID channel mask: 1 left, 2 right, 3 both. Default 3.")),
		mcp.WithNumber("instrument", mcp.Description("Instrument, drum or MIDI voice for selected-voice parameters (0-based).")),
		mcp.WithBoolean("scaled", mcp.Description("Treat value as 16-bit.")),
	), t.setParameter)

	s.AddTool(mcp.NewTool("mbsid_play-note",
		mcp.WithDescription("Plays notes through the note dispatcher, e.g. \"C4 E4 G4\" or \"C4,r,Bb3\"."),
		mcp.WithString("notes", mcp.Required(), mcp.Description("Space or comma separated notes; r is a rest.")),
		mcp.WithNumber("channel", mcp.Description("MIDI channel 1-16. Default 1.")),
	), t.playNote)

	s.AddTool(mcp.NewTool("mbsid_voices",
		mcp.WithDescription("Returns the state of every sound voice and wavetable slot as JSON."),
	), t.voices)

	s.AddTool(mcp.NewTool("mbsid_load-patch",
		mcp.WithDescription("Loads a .syx patch dump into the engine."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the .syx file.")),
	), t.loadPatch)

	s.AddTool(mcp.NewTool("mbsid_dump-patch",
		mcp.WithDescription("Requests a patch from the connected MIDIbox SID and loads it into the engine."),
		mcp.WithString("bank", mcp.Required(), mcp.Description("The bank of the patch (A-H).")),
		mcp.WithNumber("program", mcp.Required(), mcp.Description("The program number of the patch (1-128).")),
	), t.dumpPatch)

	s.AddTool(mcp.NewTool("mbsid_store",
		mcp.WithDescription("Stores the loaded patch to a .syx file, or to the connected device when bank and program are given."),
		mcp.WithString("path", mcp.Description("Path of the .syx file to write.")),
		mcp.WithString("bank", mcp.Description("The bank of the patch (A-H).")),
		mcp.WithNumber("program", mcp.Description("The program number of the patch (1-128).")),
		mcp.WithString("name", mcp.Description("Rename the patch before storing.")),
	), t.store)

	return s
}

func (t *tools) describeParameters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp] Handling describe parameters request.")

	e := t.core.Patch.Engine()
	if name := request.GetString("engine", ""); name != "" {
		var ok bool
		if e, ok = patch.ParseEngine(name); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown engine %q", name)), nil
		}
	}
	return mcp.NewToolResultText(renderTable(e, false)), nil
}

func (t *tools) getParameter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp] Handling get parameter request.")

	numText, err := request.RequireString("number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	num, err := parseParam(numText)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sid := uint8(request.GetInt("sid", 1))
	ins := uint8(request.GetInt("instrument", 0))
	shadow := request.GetBool("shadow", false)

	var ent partable.Entry
	var v uint16
	if err := t.core.Do(ctx, func(c *engine.Core) {
		ent = partable.Lookup(c.Patch.Engine(), num)
		v = c.Target.Get(num, sid, ins, shadow)
	}); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("%02X %s (%s) = %d", num, strings.TrimSpace(ent.Label()), ent.Mode, v)), nil
}

func (t *tools) setParameter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp] Handling set parameter request.")

	numText, err := request.RequireString("number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	num, err := parseParam(numText)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireInt("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if value < 0 || value > 0xffff {
		return mcp.NewToolResultError(fmt.Sprintf("value %d outside 0..65535", value)), nil
	}
	sid := uint8(request.GetInt("sid", 3))
	ins := uint8(request.GetInt("instrument", 0))
	scaled := request.GetBool("scaled", false)

	var got uint16
	if err := t.core.Do(ctx, func(c *engine.Core) {
		if scaled {
			c.Target.SetScaled(num, uint16(value), sid, ins)
		} else {
			c.Target.Set(num, uint16(value), sid, ins)
		}
		c.Patch.SyncShadow()
		got = c.Target.Get(num, sid, ins, false)
	}); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("%02X = %d", num, got)), nil
}

func (t *tools) playNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := request.RequireString("notes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ch := request.GetInt("channel", 1)
	if ch < 1 || ch > 16 {
		return mcp.NewToolResultError(fmt.Sprintf("channel %d outside 1..16", ch)), nil
	}

	log.Println("[mcp] Playing notes:", notes)
	if err := playNotesFromText(t.core.Post, uint8(ch-1), notes, sleepCtx(ctx)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Notes played successfully."), nil
}

func sleepCtx(ctx context.Context) func(time.Duration) {
	return func(d time.Duration) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
}

type voiceJSON struct {
	Voice      int    `json:"voice"`
	Instrument uint8  `json:"instrument"`
	Note       uint8  `json:"note"`
	Velocity   uint8  `json:"velocity"`
	Gate       bool   `json:"gate"`
	Pitchbend  uint16 `json:"pitchbend"`
}

type slotJSON struct {
	Slot     int    `json:"slot"`
	State    string `json:"state"`
	Position uint8  `json:"position"`
}

func voiceDocument(vs []voice.Voice) []voiceJSON {
	out := make([]voiceJSON, len(vs))
	for i, v := range vs {
		out[i] = voiceJSON{
			Voice:      i,
			Instrument: v.Instrument,
			Note:       v.Note,
			Velocity:   v.Velocity,
			Gate:       v.Active,
			Pitchbend:  v.Pitchbend,
		}
	}
	return out
}

func (t *tools) voices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var doc struct {
		Engine    string      `json:"engine"`
		Voices    []voiceJSON `json:"voices"`
		Slots     []slotJSON  `json:"wavetables"`
		Dropped   uint64      `json:"dropped_events"`
		HeldNotes [][]uint8   `json:"held_notes"`
	}
	if err := t.core.Do(ctx, func(c *engine.Core) {
		doc.Engine = c.Patch.Engine().String()
		doc.Voices = voiceDocument(c.Voices())
		for i := range c.WT.Slots {
			s := &c.WT.Slots[i]
			doc.Slots = append(doc.Slots, slotJSON{i, s.State().String(), s.Position()})
		}
		for m := range c.Dispatch.MIDI {
			doc.HeldNotes = append(doc.HeldNotes, c.Dispatch.Held(m))
		}
	}); err != nil {
		return nil, err
	}
	doc.Dropped = t.core.Dropped()

	asJson, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal voices to JSON: %v", err)
	}
	return mcp.NewToolResultText(string(asJson)), nil
}

func (t *tools) loadPatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Println("[mcp] Loading patch", path)

	d, err := sysex.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.load(ctx, d.Image)
}

func (t *tools) load(ctx context.Context, img []byte) (*mcp.CallToolResult, error) {
	var name string
	var e patch.Engine
	if err := t.core.Do(ctx, func(c *engine.Core) {
		c.Handle(engine.Event{Kind: engine.LoadPatch, Data: img})
		name, e = c.Patch.Live().Name(), c.Patch.Engine()
	}); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Loaded %s patch %q.", e, name)), nil
}

func (t *tools) dumpPatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.syn == nil || t.in == nil {
		return mcp.NewToolResultError("no MIDIbox SID connected"), nil
	}
	bank, err := request.RequireString("bank")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	program, err := request.RequireInt("program")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log.Println("[mcp] Requesting patch", bank, program)
	d, err := t.syn.RequestPatch(t.in, bank, program)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch: %v", err)
	}
	return t.load(ctx, d.Image)
}

func (t *tools) store(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	bank := request.GetString("bank", "")
	program := request.GetInt("program", 0)
	name := request.GetString("name", "")
	if path == "" && bank == "" {
		return mcp.NewToolResultError("give a path or a bank and program"), nil
	}

	var img []byte
	if err := t.core.Do(ctx, func(c *engine.Core) {
		if name != "" {
			c.Patch.SetName(name)
		}
		img = c.Patch.Snapshot()
	}); err != nil {
		return nil, err
	}

	var done []string
	if path != "" {
		if err := sysex.WriteFile(path, deviceID, 0, 0, img); err != nil {
			return nil, err
		}
		done = append(done, path)
	}
	if bank != "" {
		if t.syn == nil {
			return mcp.NewToolResultError("no MIDIbox SID connected"), nil
		}
		if err := t.syn.SendPatch(bank, program, img); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		done = append(done, fmt.Sprintf("%s%03d", strings.ToUpper(bank[:1]), program))
	}
	return mcp.NewToolResultText("Patch stored to " + strings.Join(done, " and ") + "."), nil
}
