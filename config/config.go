// Package config loads the optional mbsid.yaml file.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"mbsidmcp/patch"
)

// DefaultPath is looked up in the working directory.
const DefaultPath = "mbsid.yaml"

// Config is the file format.
type Config struct {
	Port         string         `yaml:"port"`
	Engine       string         `yaml:"engine"`
	UpdateHz     int            `yaml:"update_hz"`
	BPM          float64        `yaml:"bpm"`
	Queue        int            `yaml:"queue"`
	Channels     []int          `yaml:"channels"` // 1-based, per MIDI voice
	Split        [][2]int       `yaml:"split"`
	DrumBaseNote int            `yaml:"drum_base_note"`
	CC           map[string]any `yaml:"cc"`
	Patch        string         `yaml:"patch"`   // .syx dump loaded at start
	Library      string         `yaml:"library"` // directory of A001.syx .. H128.syx for program changes
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Port:         "mbsid",
		Engine:       "lead",
		UpdateHz:     500,
		BPM:          120,
		Queue:        256,
		DrumBaseNote: 36,
		Library:      "patches",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, errors.WithStack(err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, errors.Wrapf(err, "parse %s", path)
	}
	if err := c.Validate(); err != nil {
		return c, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	if _, ok := patch.ParseEngine(c.Engine); !ok {
		return errors.Errorf("unknown engine %q", c.Engine)
	}
	for i, ch := range c.Channels {
		if ch < 1 || ch > 16 {
			return errors.Errorf("channel %d of MIDI voice %d outside 1..16", ch, i+1)
		}
	}
	for i, s := range c.Split {
		if s[0] < 0 || s[1] > 127 || s[0] > s[1] {
			return errors.Errorf("split %v of MIDI voice %d", s, i+1)
		}
	}
	if c.DrumBaseNote < 0 || c.DrumBaseNote > 127 {
		return errors.Errorf("drum_base_note %d", c.DrumBaseNote)
	}
	if c.UpdateHz <= 0 || c.BPM <= 0 || c.Queue <= 0 {
		return errors.New("update_hz, bpm and queue must be positive")
	}
	if _, err := c.CCMap(); err != nil {
		return err
	}
	return nil
}

// EngineValue returns the parsed engine, Lead when unknown.
func (c Config) EngineValue() patch.Engine {
	e, _ := patch.ParseEngine(c.Engine)
	return e
}

// MIDIChannels returns the 0-based channel per MIDI voice.
func (c Config) MIDIChannels() []uint8 {
	out := make([]uint8, len(c.Channels))
	for i, ch := range c.Channels {
		out[i] = uint8(ch-1) & 0x0f
	}
	return out
}

// Splits returns the lower and upper key per MIDI voice.
func (c Config) Splits() [][2]uint8 {
	out := make([][2]uint8, len(c.Split))
	for i, s := range c.Split {
		out[i] = [2]uint8{uint8(s[0]), uint8(s[1])}
	}
	return out
}

// CCMap converts the cc section. Keys and values may be decimal or 0x
// prefixed hexadecimal.
func (c Config) CCMap() (map[uint8]uint8, error) {
	out := make(map[uint8]uint8, len(c.CC))
	for k, v := range c.CC {
		cc, err := number(k)
		if err != nil || cc > 127 {
			return nil, errors.Errorf("cc %q is not a controller number", k)
		}
		num, err := number(v)
		if err != nil || num > 255 {
			return nil, errors.Errorf("cc %s: %v is not a parameter number", k, v)
		}
		out[uint8(cc)] = uint8(num)
	}
	return out, nil
}

func number(v any) (uint64, error) {
	if s, ok := v.(string); ok {
		v = strings.ToLower(strings.TrimSpace(s))
	}
	return cast.ToUint64E(v)
}
