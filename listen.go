package main

import (
	"context"
	"fmt"
	"time"

	"mbsidmcp/engine"
	"mbsidmcp/voice"
)

const watchInterval = time.Second

// watchVoices prints the voices whenever their gates changed.
func watchVoices(ctx context.Context, core *engine.Core) error {
	tick := time.NewTicker(watchInterval)
	defer tick.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
		var voices []voice.Voice
		if err := core.Do(ctx, func(c *engine.Core) {
			voices = c.Voices()
		}); err != nil {
			return err
		}
		if out := renderVoices(voices, false); out != last {
			fmt.Print(renderVoices(voices, true))
			last = out
		}
	}
}
