/*
DESCRIPTION
  level_test.go tests DPB sizing derivation from SPS profile/level/dimensions
  and VUI bitstream restrictions.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package level

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/h264decoder/codec/h264/h264dec"
)

// 1280x720: 80x45 macroblocks = 3600 MBs.
func hd720SPS() *h264dec.SPS {
	return &h264dec.SPS{
		Profile:                   100,
		LevelIDC:                  31, // MaxDpbMbs 18000 -> 18000/3600 = 5
		PicWidthInMBSMinus1:       79,
		PicHeightInMapUnitsMinus1: 44,
		FrameMBSOnlyFlag:          true,
		MaxNumRefFrames:           2,
	}
}

func TestDpbSizingBasic(t *testing.T) {
	sps := hd720SPS()
	got := DpbSizing(sps, Normal)

	want := Sizing{MaxDpbFrames: 5, MaxDpbSize: 5, MaxNumReorderFrames: 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DpbSizing mismatch (-want +got):\n%s", diff)
	}
}

func TestDpbSizingMaxNumRefFramesRaisesSize(t *testing.T) {
	sps := hd720SPS()
	sps.MaxNumRefFrames = 8

	got := DpbSizing(sps, Normal)
	want := Sizing{MaxDpbFrames: 5, MaxDpbSize: 8, MaxNumReorderFrames: 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DpbSizing mismatch (-want +got):\n%s", diff)
	}
}

func TestDpbSizingCappedAt16(t *testing.T) {
	sps := hd720SPS()
	sps.MaxNumRefFrames = 64

	got := DpbSizing(sps, Normal)
	want := Sizing{MaxDpbFrames: 5, MaxDpbSize: 16, MaxNumReorderFrames: 16}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DpbSizing mismatch (-want +got):\n%s", diff)
	}
}

func TestDpbSizingVUIOverridesFrames(t *testing.T) {
	sps := hd720SPS()
	sps.VUIParameters = &h264dec.VUIParameters{
		BitstreamRestrictionFlag: true,
		MaxDecFrameBuffering:     2,
		MaxNumReorderFrames:      1,
	}

	got := DpbSizing(sps, Normal)
	want := Sizing{MaxDpbFrames: 2, MaxDpbSize: 2, MaxNumReorderFrames: 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DpbSizing mismatch (-want +got):\n%s", diff)
	}
}

func TestDpbSizingBaselineZeroReorderUnlessStrict(t *testing.T) {
	sps := hd720SPS()
	sps.Profile = 66 // baseline

	if got := DpbSizing(sps, Normal).MaxNumReorderFrames; got != 0 {
		t.Errorf("Normal compliance: MaxNumReorderFrames = %d, want 0 for baseline", got)
	}
	if got := DpbSizing(sps, Strict).MaxNumReorderFrames; got == 0 {
		t.Error("Strict compliance should not zero reorder frames for baseline")
	}
}

func TestDpbSizingConstraintSet3ZeroReorder(t *testing.T) {
	sps := hd720SPS()
	sps.Profile = 110
	sps.Constraint3 = true

	if got := DpbSizing(sps, Strict).MaxNumReorderFrames; got != 0 {
		t.Errorf("MaxNumReorderFrames = %d, want 0 (constraint_set3 on profile 110)", got)
	}
}

func TestMaxDpbMbsUnknownLevelUsesHighest(t *testing.T) {
	if got := maxDpbMbs(255, false); got != maxDpbMbsTable[len(maxDpbMbsTable)-1].maxDpbMbs {
		t.Errorf("maxDpbMbs(255, false) = %d, want highest table entry", got)
	}
}

func TestMaxDpbMbsLevel1bDistinctFromLevel11(t *testing.T) {
	if got := maxDpbMbs(11, true); got != 396 {
		t.Errorf("maxDpbMbs(11, true) = %d, want 396 (level 1b)", got)
	}
	if got := maxDpbMbs(11, false); got != 900 {
		t.Errorf("maxDpbMbs(11, false) = %d, want 900 (level 1.1)", got)
	}
}

func TestDpbSizingFieldCodedDoublesHeight(t *testing.T) {
	sps := hd720SPS()
	sps.FrameMBSOnlyFlag = false // height in MBs doubles

	s := DpbSizing(sps, Normal)
	// picSizeMbs doubles (80x90=7200), so MaxDpbFrames halves relative to
	// the frame-coded case (18000/7200 = 2).
	if s.MaxDpbFrames != 2 {
		t.Errorf("MaxDpbFrames = %d, want 2", s.MaxDpbFrames)
	}
}
