/*
DESCRIPTION
  level.go derives the decoded picture buffer's size from an SPS's
  profile/level/dimensions and VUI bitstream restrictions, per Annex A's
  MaxDpbMbs table and section 4.6 of the specification.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package level

import "github.com/ausocean/h264decoder/codec/h264/h264dec"

// Compliance selects how eagerly the Driver bumps pictures out of the Dpb.
type Compliance int

const (
	Auto Compliance = iota
	Strict
	Normal
	Flexible
)

// dpbMbsEntry pairs a level_idc value with its Annex A MaxDpbMbs limit.
// level_idc 11 appears twice in the standard: plain level 1.1, and the
// constrained level 1b, which shares the same level_idc and is only
// distinguishable by constraint_set3_flag. is1b marks that second row so
// maxDpbMbs can pick the right one instead of always taking the first match.
type dpbMbsEntry struct {
	levelIDC  uint8
	maxDpbMbs int
	is1b      bool
}

// maxDpbMbsTable is Annex A Table A-1's MaxDpbMbs column, the 20 levels the
// standard defines (1, 1b, 1.1, 1.2, 1.3, 2, 2.1, 2.2, 3, 3.1, 3.2, 4, 4.1,
// 4.2, 5, 5.1, 5.2, 6, 6.1, 6.2).
var maxDpbMbsTable = []dpbMbsEntry{
	{10, 396, false},
	{11, 396, true}, // 1b
	{11, 900, false}, // 1.1
	{12, 2376, false},
	{13, 2376, false},
	{20, 2376, false},
	{21, 4752, false},
	{22, 8100, false},
	{30, 8100, false},
	{31, 18000, false},
	{32, 20480, false},
	{40, 32768, false},
	{41, 32768, false},
	{42, 34816, false},
	{50, 110400, false},
	{51, 184320, false},
	{52, 184320, false},
	{60, 696320, false},
	{61, 696320, false},
	{62, 696320, false},
}

// constraintSet3Profiles is the set of profiles where constraint_set3_flag
// forces max_num_reorder_frames to 0 per section 4.6.
var constraintSet3Profiles = map[uint8]bool{
	44: true, 86: true, 100: true, 110: true, 122: true, 244: true,
}

const (
	profileBaseline            = 66
	profileConstrainedBaseline = 83
)

// maxDpbMbs returns the MaxDpbMbs limit for levelIDC, or the highest table
// entry if levelIDC exceeds every known level (a forward-compatible
// bitstream the decoder should still size generously for). constraintSet3
// disambiguates level_idc 11 between level 1b (true) and level 1.1 (false).
func maxDpbMbs(levelIDC uint8, constraintSet3 bool) int {
	for _, e := range maxDpbMbsTable {
		if e.levelIDC != levelIDC {
			continue
		}
		if levelIDC == 11 && e.is1b != constraintSet3 {
			continue
		}
		return e.maxDpbMbs
	}
	return maxDpbMbsTable[len(maxDpbMbsTable)-1].maxDpbMbs
}

// Sizing holds the derived DPB sizing for an active SPS.
type Sizing struct {
	MaxDpbFrames        int
	MaxDpbSize          int
	MaxNumReorderFrames int
}

// DpbSizing derives the DPB sizing for sps under the given compliance
// setting, per section 4.6.
func DpbSizing(sps *h264dec.SPS, compliance Compliance) Sizing {
	widthMB := int(sps.PicWidthInMBSMinus1) + 1
	heightMapUnits := int(sps.PicHeightInMapUnitsMinus1) + 1
	heightMB := heightMapUnits
	if !sps.FrameMBSOnlyFlag {
		heightMB *= 2
	}

	picSizeMbs := widthMB * heightMB
	maxDpbFrames := 16
	if picSizeMbs > 0 {
		maxDpbFrames = maxDpbMbs(sps.LevelIDC, sps.Constraint3) / picSizeMbs
		if maxDpbFrames > 16 {
			maxDpbFrames = 16
		}
	}

	if sps.VUIParameters != nil && sps.VUIParameters.BitstreamRestrictionFlag {
		if mdfb := int(sps.VUIParameters.MaxDecFrameBuffering); mdfb < maxDpbFrames {
			maxDpbFrames = mdfb
		}
	}

	maxDpbSize := maxDpbFrames
	if n := int(sps.MaxNumRefFrames); n > maxDpbSize {
		maxDpbSize = n
	}
	if maxDpbSize > 16 {
		maxDpbSize = 16
	}

	return Sizing{
		MaxDpbFrames:        maxDpbFrames,
		MaxDpbSize:          maxDpbSize,
		MaxNumReorderFrames: maxNumReorderFrames(sps, compliance, maxDpbSize),
	}
}

func maxNumReorderFrames(sps *h264dec.SPS, compliance Compliance, maxDpbSize int) int {
	if sps.VUIParameters != nil && sps.VUIParameters.BitstreamRestrictionFlag {
		n := int(sps.VUIParameters.MaxNumReorderFrames)
		if n > maxDpbSize {
			n = maxDpbSize
		}
		return n
	}

	if sps.Constraint3 && constraintSet3Profiles[sps.Profile] {
		return 0
	}

	if compliance != Strict && (sps.Profile == profileBaseline || sps.Profile == profileConstrainedBaseline) {
		return 0
	}

	return maxDpbSize
}
