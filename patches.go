package main

import (
	"fmt"
	"log"
	"path/filepath"

	"mbsidmcp/config"
	"mbsidmcp/patch"
	"mbsidmcp/sysex"
)

// library serves program changes from a directory of patch dumps named
// after their bank and program, A001.syx to H128.syx.
type library struct {
	dir string
}

func (l library) path(bank, program uint8) string {
	return filepath.Join(l.dir, fmt.Sprintf("%c%03d.syx", 'A'+bank&7, int(program&0x7f)+1))
}

func (l library) Patch(bank, program uint8) ([]byte, bool) {
	if l.dir == "" {
		return nil, false
	}
	d, err := sysex.ReadFile(l.path(bank, program))
	if err != nil {
		log.Printf("[engine] program change: %v", err)
		return nil, false
	}
	return d.Image, true
}

// loadStore builds the patch store from the configured engine and, when
// set, the configured patch dump. The dump's own engine field wins.
func loadStore(cfg config.Config) (*patch.Store, error) {
	store := patch.New(cfg.EngineValue())
	if cfg.Patch == "" {
		return store, nil
	}
	d, err := sysex.ReadFile(cfg.Patch)
	if err != nil {
		return nil, err
	}
	loadImage(store, d.Image)
	log.Printf("Loaded %s patch %q from %s", store.Engine(), store.Live().Name(), cfg.Patch)
	return store, nil
}

func loadImage(store *patch.Store, img []byte) {
	e := patch.Lead
	if len(img) > patch.OffEngine {
		e = patch.Engine(img[patch.OffEngine] & 3)
	}
	store.Replace(e, img)
}
