package sysex

import (
	"os"

	"github.com/pkg/errors"
)

// ReadFile loads a patch dump saved as a .syx file.
func ReadFile(path string) (Dump, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dump{}, errors.WithStack(err)
	}
	d, err := Decode(raw)
	if err != nil {
		return Dump{}, errors.Wrapf(err, "decode %s", path)
	}
	return d, nil
}

// WriteFile saves img as a patch dump.
func WriteFile(path string, dev, bank, program uint8, img []byte) error {
	if err := os.WriteFile(path, Encode(dev, bank, program, img), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
