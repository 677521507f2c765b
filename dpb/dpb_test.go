/*
DESCRIPTION
  dpb_test.go tests the decoded picture buffer's add/bump/MMCO behaviour
  against the scenarios described by section 8 of the specification: an
  IDR-only stream, B-frame reordering, MMCO-5 mid-stream and a field-pair
  split combined with MMCO-3.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package dpb

import (
	"testing"

	"github.com/ausocean/h264decoder/codec/h264/h264dec"
)

func newTestDpb(maxFrames, maxReorder int) *Dpb {
	d := New(nil)
	d.SetMaxNumFrames(maxFrames)
	d.SetMaxNumReorderFrames(maxReorder)
	return d
}

func frame(poc int, ref RefState, idr bool) *Picture {
	p := NewPicture()
	p.PicOrderCnt = poc
	p.TopFieldOrderCnt = poc
	p.BottomFieldOrderCnt = poc
	p.Ref = ref
	if ref != RefNone {
		p.RefPic = true
	}
	p.IDR = idr
	return p
}

// TestIDROnlyStream verifies that a stream of only IDR frames (each forcing
// a bump of everything already buffered) outputs every frame in POC order.
func TestIDROnlyStream(t *testing.T) {
	d := newTestDpb(4, 0)

	var out []*Picture
	for i := 0; i < 4; i++ {
		p := frame(i, RefShortTerm, true)
		if d.NeedsBump(p, NormalLatency) {
			// The first IDR finds the Dpb empty, so Bump has nothing to output.
			if b := d.Bump(false); b != nil {
				out = append(out, b)
			}
		}
		d.Add(p)
	}
	for d.Len() > 0 {
		b := d.Bump(true)
		if b == nil {
			break
		}
		out = append(out, b)
	}

	if len(out) != 4 {
		t.Fatalf("got %d output pictures, want 4", len(out))
	}
	for i, p := range out {
		if p.PicOrderCnt != i {
			t.Errorf("output[%d].PicOrderCnt = %d, want %d", i, p.PicOrderCnt, i)
		}
	}
}

// TestBReordering verifies that with one reorder frame of slack, a
// I(0) P(4) B(2) sequence is output in POC order: 0, 2, 4.
func TestBReordering(t *testing.T) {
	d := newTestDpb(4, 1)

	i0 := frame(0, RefShortTerm, true)
	d.Add(i0)

	p4 := frame(4, RefShortTerm, false)
	d.Add(p4)

	b2 := frame(2, RefNone, false)
	d.Add(b2)

	var out []*Picture
	for d.NeedsBump(nil, LowLatency) {
		out = append(out, d.Bump(false))
	}
	for d.Len() > 0 {
		b := d.Bump(true)
		if b == nil {
			break
		}
		out = append(out, b)
	}

	if len(out) != 3 {
		t.Fatalf("got %d output pictures, want 3", len(out))
	}
	wantOrder := []int{0, 2, 4}
	for i, p := range out {
		if p.PicOrderCnt != wantOrder[i] {
			t.Errorf("output[%d].PicOrderCnt = %d, want %d", i, p.PicOrderCnt, wantOrder[i])
		}
	}
}

// TestMMCO5ResetsPOC verifies operation 5 zeroes the triggering picture's
// POC and frame_num and marks every other reference as unused.
func TestMMCO5ResetsPOC(t *testing.T) {
	d := newTestDpb(4, 0)

	ref1 := frame(10, RefShortTerm, false)
	d.Add(ref1)
	ref2 := frame(20, RefShortTerm, false)
	d.Add(ref2)

	current := frame(30, RefShortTerm, false)
	current.FrameNum = 5
	d.Add(current)

	d.PerformMMCO([]h264dec.MMCO{{Op: 5}}, current)

	if current.PicOrderCnt != 0 {
		t.Errorf("current.PicOrderCnt = %d, want 0", current.PicOrderCnt)
	}
	if current.FrameNum != 0 {
		t.Errorf("current.FrameNum = %d, want 0", current.FrameNum)
	}
	if !current.MemMgmt5 {
		t.Error("current.MemMgmt5 = false, want true")
	}
	if ref1.Ref != RefNone || ref2.Ref != RefNone {
		t.Error("other references were not cleared by MMCO-5")
	}
}

// TestMMCO3PromotesToLongTerm verifies operation 3 promotes a short-term
// reference to long-term, evicting any existing holder of the requested
// long_term_frame_idx.
func TestMMCO3PromotesToLongTerm(t *testing.T) {
	d := newTestDpb(4, 0)

	short := frame(10, RefShortTerm, false)
	short.PicNum = 5
	d.Add(short)

	existingLong := frame(20, RefLongTerm, false)
	existingLong.LongTermFrameIdx = 0
	d.Add(existingLong)

	current := frame(30, RefShortTerm, false)
	current.PicNum = 8
	d.Add(current)

	mmco := h264dec.MMCO{Op: 3, DifferenceOfPicNumsMinus1: 2, LongTermFrameIdx: 0} // picNum = 8 - 3 = 5
	d.PerformMMCO([]h264dec.MMCO{mmco}, current)

	if short.Ref != RefLongTerm {
		t.Errorf("short.Ref = %v, want RefLongTerm", short.Ref)
	}
	if short.LongTermFrameIdx != 0 {
		t.Errorf("short.LongTermFrameIdx = %d, want 0", short.LongTermFrameIdx)
	}
	if existingLong.Ref != RefNone {
		t.Error("existingLong should have been evicted from long_term_frame_idx 0")
	}
}

// TestFieldPairSplitAndCombine verifies that a complementary field pair,
// added as two separate pictures, is bumped together as one output with
// TopFieldFirst set correctly.
func TestFieldPairSplitAndCombine(t *testing.T) {
	d := newTestDpb(4, 0)
	d.SetInterlaced(true)

	top := NewPicture()
	top.Field = FieldTop
	top.PicOrderCnt = 0
	top.Ref = RefShortTerm
	top.NeededForOutput = true

	bot := NewPicture()
	bot.Field = FieldBottom
	bot.PicOrderCnt = 1
	bot.Ref = RefShortTerm
	bot.SecondField = true
	bot.NeededForOutput = true

	Pair(top, bot)

	d.Add(top)
	d.Add(bot)

	got := d.Bump(true)
	if got == nil {
		t.Fatal("Bump returned nil")
	}
	if got != top {
		t.Fatalf("Bump returned %p, want the top field %p", got, top)
	}
	if !got.Interlaced {
		t.Error("Interlaced = false, want true")
	}
	if !got.TopFieldFirst {
		t.Error("TopFieldFirst = false, want true (top POC 0 <= bottom POC 1)")
	}
}

func TestHasEmptyFrameBufferInterlaced(t *testing.T) {
	d := newTestDpb(1, 0)
	d.SetInterlaced(true)

	if !d.HasEmptyFrameBuffer() {
		t.Fatal("expected room for the first frame")
	}

	top := NewPicture()
	top.Field = FieldTop
	bot := NewPicture()
	bot.Field = FieldBottom
	Pair(top, bot)
	d.Add(top)
	d.Add(bot)

	if d.HasEmptyFrameBuffer() {
		t.Error("expected no room once one complementary pair fills maxNumFrames=1")
	}
}

func TestDeleteUnused(t *testing.T) {
	d := newTestDpb(4, 0)

	keep := frame(0, RefShortTerm, false)
	keep.NeededForOutput = false
	drop := frame(1, RefNone, false)
	drop.NeededForOutput = false

	d.Add(keep)
	d.Add(drop)
	d.DeleteUnused()

	if d.Len() != 1 {
		t.Fatalf("got %d pictures after DeleteUnused, want 1", d.Len())
	}
	if d.Pictures()[0] != keep {
		t.Error("DeleteUnused removed the wrong picture")
	}
}
