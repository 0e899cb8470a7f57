package par

import (
	"math/bits"

	"mbsidmcp/partable"
	"mbsidmcp/patch"
)

// VoiceMask returns the voices (filters for FanFilter, instruments for Multi)
// a write of parameter num reaches. Bit n selects voice n. Fan-outs with no
// voice dimension report bit 0.
func VoiceMask(e patch.Engine, num, sidMask, ins uint8) uint16 {
	d := partable.Describe(partable.Lookup(e, num).Mode)
	return fanMask(e, d.Fan, num, sidMask, ins)
}

func fanMask(e patch.Engine, fan partable.Fan, num, sidMask, ins uint8) uint16 {
	switch fan {
	case partable.FanNone:
		return 1
	case partable.FanFilter:
		return uint16(sidMask & 3)
	case partable.FanSelected:
		if int(ins) >= e.Voices() {
			return 0
		}
		return 1 << ins
	case partable.FanAll:
		return uint16(1)<<e.Voices() - 1
	case partable.FanVoice:
		return voiceRule(e, num, sidMask, ins)
	}
	return 0
}

func voiceRule(e patch.Engine, num, sidMask, ins uint8) uint16 {
	switch e & 3 {
	case patch.Lead:
		var left, right uint16
		if sel := num & 3; sel == 0 {
			left, right = 0x07, 0x38
		} else {
			left, right = 1<<(sel-1), 1<<(sel+2)
		}
		var m uint16
		if sidMask&1 != 0 {
			m |= left
		}
		if sidMask&2 != 0 {
			m |= right
		}
		return m

	case patch.Bassline:
		var m uint16
		switch num & 3 {
		case 0:
			if ins < 2 {
				m = 1 << ins
			}
		case 1:
			m = 1
		case 2:
			m = 2
		case 3:
			m = 3
		}
		return m & uint16(sidMask&3)

	case patch.Drum:
		return 1 << (num & 15)

	default:
		switch sel := num & 7; sel {
		case 0:
			return 0x3f
		case 1:
			if ins < 6 {
				return 1 << ins
			}
			return 0
		default:
			return 1 << (sel - 2)
		}
	}
}

// first returns the index of the lowest set bit, or -1 for an empty mask.
func first(mask uint16) int {
	if mask == 0 {
		return -1
	}
	return bits.TrailingZeros16(mask)
}
