package patch

import (
	"bytes"
	"testing"
)

func TestFieldNibbleIsolation(t *testing.T) {
	var img Image
	img[0x61] = 0xA5

	img.Write(Field{Offset: 0x61, Width: 4}, 0x3)
	if img[0x61] != 0xA3 {
		t.Fatalf("low nibble write: got 0x%02X want 0xA3", img[0x61])
	}

	img.Write(Field{Offset: 0x61, Shift: 4, Width: 4}, 0xC)
	if img[0x61] != 0xC3 {
		t.Fatalf("high nibble write: got 0x%02X want 0xC3", img[0x61])
	}
}

func TestField12BitPair(t *testing.T) {
	var img Image
	img[0x56] = 0xB0
	f := Field{Offset: 0x55, Width: 12}

	for _, v := range []uint16{0, 1, 0x123, 0x800, 0xFFF} {
		img.Write(f, v)
		if got := img.Read(f); got != v {
			t.Errorf("read back 0x%03X, want 0x%03X", got, v)
		}
		if img[0x56]&0xF0 != 0xB0 {
			t.Errorf("high nibble of second byte clobbered: 0x%02X", img[0x56])
		}
	}

	img.Write(f, 0xFFF)
	if img[0x55] != 0xFF || img[0x56] != 0xBF {
		t.Fatalf("raw bytes = [0x%02X 0x%02X], want [0xFF 0xBF]", img[0x55], img[0x56])
	}
}

func TestFieldTruncatesWideValues(t *testing.T) {
	var img Image
	img[0x10] = 0x80
	f := Field{Offset: 0x10, Width: 7}
	img.Write(f, 0x1AB)
	if got := img.Read(f); got != 0x2B {
		t.Fatalf("7-bit field kept 0x%X, want 0x2B", got)
	}
	if img[0x10]&0x80 == 0 {
		t.Fatal("top bit was not preserved")
	}
}

func TestFieldAtImageEnd(t *testing.T) {
	var img Image
	f := Field{Offset: Size - 1, Width: 12}
	img.Write(f, 0xFFF)
	if img[Size-1] != 0xFF {
		t.Fatalf("last byte = 0x%02X", img[Size-1])
	}
	if got := img.Read(f); got != 0xFF {
		t.Fatalf("read past end = 0x%X, want 0xFF", got)
	}
}

func TestReplaceAndShadow(t *testing.T) {
	data := make([]byte, 40)
	data[OffEngine] = 0xF0
	copy(data, "Bass Pad")

	s := New(Lead)
	s.Replace(Multi, data)

	if s.Engine() != Multi {
		t.Fatalf("engine = %v, want multi", s.Engine())
	}
	if s.Live()[OffEngine] != 0xF3 {
		t.Fatalf("engine byte = 0x%02X, upper bits lost", s.Live()[OffEngine])
	}
	if !bytes.Equal(s.Shadow()[:], s.Snapshot()) {
		t.Fatal("shadow not synchronised on replace")
	}

	s.Write(Byte8(OffVolume), 0x7F)
	if s.Shadow().Byte(OffVolume) != 0 {
		t.Fatal("live write leaked into shadow")
	}

	prev := s.Shadow()
	s.SyncShadow()
	if s.Shadow().Byte(OffVolume) != 0x7F {
		t.Fatal("shadow not updated by SyncShadow")
	}
	if prev.Byte(OffVolume) != 0 {
		t.Fatal("previous shadow image was mutated")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := New(Drum)
	snap := s.Snapshot()
	snap[OffVolume] = 0x55
	if s.Byte(OffVolume) != 0 {
		t.Fatal("snapshot aliases live image")
	}
}

func TestNames(t *testing.T) {
	s := New(Lead)
	s.SetName("Sync Lead With A Very Long Name")
	if got := s.Live().Name(); got != "Sync Lead With A" {
		t.Fatalf("name = %q", got)
	}

	for _, e := range []Engine{Lead, Bassline, Drum, Multi} {
		got, ok := ParseEngine(" " + e.String() + " ")
		if !ok || got != e {
			t.Errorf("ParseEngine(%q) = %v, %v", e.String(), got, ok)
		}
	}
	if _, ok := ParseEngine("fm"); ok {
		t.Error("ParseEngine accepted an unknown engine")
	}
}

func TestEngineGeometry(t *testing.T) {
	tests := []struct {
		e      Engine
		voices int
		last   uint16
	}{
		{Lead, 6, 0x0b0},
		{Bassline, 2, 0x0b0},
		{Drum, 16, 0x060 + 15*10},
		{Multi, 6, 0x060 + 5*0x30},
	}
	for _, tt := range tests {
		if tt.e.Voices() != tt.voices {
			t.Errorf("%v voices = %d, want %d", tt.e, tt.e.Voices(), tt.voices)
		}
		if got := tt.e.VoiceAddr(tt.voices - 1); got != tt.last {
			t.Errorf("%v last voice at 0x%03X, want 0x%03X", tt.e, got, tt.last)
		}
	}
}
