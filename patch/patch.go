// Package patch holds the memory image of one sound patch.
//
// A Store carries two images: the live image, mutated by MIDI events and the
// control-rate tick, and a shadow image used by displays and tools. The
// shadow is only ever replaced wholesale (on patch load or an explicit
// sync), so it can be read from any goroutine while the live image changes.
package patch

import (
	"strings"
	"sync/atomic"
)

// Size of a patch image in bytes. Offsets are masked to this range.
const Size = 0x200

const addrMask = Size - 1

// Engine selects the sound engine a patch is written for.
type Engine uint8

const (
	Lead Engine = iota
	Bassline
	Drum
	Multi
)

var engineNames = [...]string{"lead", "bassline", "drum", "multi"}

func (e Engine) String() string {
	return engineNames[e&3]
}

// ParseEngine accepts the names printed by String, case-insensitively.
func ParseEngine(name string) (Engine, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range engineNames {
		if s == n {
			return Engine(i), true
		}
	}
	return Lead, false
}

// Voices returns the number of voice slots the engine drives.
func (e Engine) Voices() int {
	switch e & 3 {
	case Bassline:
		return 2
	case Drum:
		return 16
	default:
		return 6
	}
}

// Stride is the distance between two voice (or instrument) blocks.
func (e Engine) Stride() uint16 {
	switch e & 3 {
	case Bassline:
		return BasslineStride
	case Drum:
		return DrumStride
	case Multi:
		return MultiStride
	default:
		return LeadStride
	}
}

// VoiceAddr returns the address of voice (or instrument) block v.
func (e Engine) VoiceAddr(v int) uint16 {
	return (OffVoices + uint16(v)*e.Stride()) & addrMask
}

// Field describes a bitfield of up to 16 bits starting at bit Shift of the
// byte at Offset and continuing little-endian into the following bytes.
type Field struct {
	Offset uint16
	Shift  uint8
	Width  uint8
}

// Mask returns the largest value the field can hold.
func (f Field) Mask() uint16 {
	if f.Width >= 16 {
		return 0xffff
	}
	return uint16(1)<<f.Width - 1
}

// Image is a raw patch image.
type Image [Size]byte

// Engine reads the engine field.
func (img *Image) Engine() Engine {
	return Engine(img[OffEngine] & 3)
}

// Byte returns the byte at off (masked into the image).
func (img *Image) Byte(off uint16) byte {
	return img[off&addrMask]
}

// Read extracts a bitfield. Bytes past the end of the image read as zero.
func (img *Image) Read(f Field) uint16 {
	off := int(f.Offset & addrMask)
	var raw uint32
	for i := 0; i < 3 && off+i < Size; i++ {
		raw |= uint32(img[off+i]) << (8 * i)
	}
	return uint16(raw>>f.Shift) & f.Mask()
}

// Write stores v into a bitfield. Bits of v above the field width are
// dropped and bits outside the field are preserved.
func (img *Image) Write(f Field, v uint16) {
	off := int(f.Offset & addrMask)
	mask := uint32(f.Mask()) << f.Shift
	val := (uint32(v) << f.Shift) & mask
	for i := 0; i < 3 && off+i < Size; i++ {
		m := byte(mask >> (8 * i))
		if m == 0 {
			continue
		}
		img[off+i] = img[off+i]&^m | byte(val>>(8*i))&m
	}
}

// Name returns the patch name with trailing padding removed.
func (img *Image) Name() string {
	return strings.TrimRight(string(img[OffName:OffName+NameLen]), "\x00 ")
}

// Store owns the live and shadow images of the loaded patch.
type Store struct {
	live   Image
	shadow atomic.Pointer[Image]
}

// New returns a store holding an empty patch for engine e.
func New(e Engine) *Store {
	s := &Store{}
	s.Replace(e, nil)
	return s
}

// Replace overwrites the patch wholesale. Short data is zero-filled, long
// data truncated, and the engine field forced to e. The shadow image is
// re-synchronised.
func (s *Store) Replace(e Engine, data []byte) {
	s.live = Image{}
	copy(s.live[:], data)
	s.live[OffEngine] = s.live[OffEngine]&^3 | byte(e&3)
	s.SyncShadow()
}

// Snapshot returns a copy of the live image for saving.
func (s *Store) Snapshot() []byte {
	out := make([]byte, Size)
	copy(out, s.live[:])
	return out
}

// Engine re-reads the engine field of the live image.
func (s *Store) Engine() Engine {
	return s.live.Engine()
}

// Live exposes the live image. Only the real-time owner may use it.
func (s *Store) Live() *Image {
	return &s.live
}

// Read extracts a bitfield from the live image.
func (s *Store) Read(f Field) uint16 {
	return s.live.Read(f)
}

// Write stores a bitfield into the live image.
func (s *Store) Write(f Field, v uint16) {
	s.live.Write(f, v)
}

// Byte reads one byte of the live image.
func (s *Store) Byte(off uint16) byte {
	return s.live.Byte(off)
}

// Shadow returns the current shadow image. Callers must not modify it.
func (s *Store) Shadow() *Image {
	return s.shadow.Load()
}

// SyncShadow publishes a copy of the live image as the new shadow.
func (s *Store) SyncShadow() {
	img := s.live
	s.shadow.Store(&img)
}

// SetName writes a name into the live image, padded with spaces.
func (s *Store) SetName(name string) {
	b := []byte(name)
	if len(b) > NameLen {
		b = b[:NameLen]
	}
	for i := 0; i < NameLen; i++ {
		c := byte(' ')
		if i < len(b) {
			c = b[i]
		}
		s.live[OffName+i] = c
	}
}
