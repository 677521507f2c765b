/*
DESCRIPTION
  reflist_test.go tests initial P/B reference list construction and
  per-slice list modification.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package reflist

import (
	"testing"

	"github.com/ausocean/h264decoder/codec/h264/h264dec"
	"github.com/ausocean/h264decoder/dpb"
)

func shortRef(picNum, poc int) *dpb.Picture {
	p := dpb.NewPicture()
	p.Ref = dpb.RefShortTerm
	p.RefPic = true
	p.PicNum = picNum
	p.PicOrderCnt = poc
	p.NeededForOutput = true
	return p
}

func longRef(ltpn, poc int) *dpb.Picture {
	p := dpb.NewPicture()
	p.Ref = dpb.RefLongTerm
	p.RefPic = true
	p.LongTermPicNum = ltpn
	p.PicOrderCnt = poc
	p.NeededForOutput = true
	return p
}

func TestBuildPFrame(t *testing.T) {
	d := dpb.New(nil)
	d.SetMaxNumFrames(8)

	p3 := shortRef(3, 30)
	p2 := shortRef(2, 20)
	p1 := shortRef(1, 10)
	lt := longRef(0, 5)

	for _, p := range []*dpb.Picture{p1, p2, p3, lt} {
		d.Add(p)
	}

	b := New(d, nil)
	current := dpb.NewPicture()
	current.SliceType = 0 // P

	got := b.BuildInitial(current, current.SliceType).L0
	want := []*dpb.Picture{p3, p2, p1, lt}
	assertPictureSlice(t, got, want)
}

func TestBuildBFrame(t *testing.T) {
	d := dpb.New(nil)
	d.SetMaxNumFrames(8)

	before1 := shortRef(1, 10) // POC < current
	before2 := shortRef(2, 20)
	after1 := shortRef(3, 40) // POC > current
	after2 := shortRef(4, 50)

	for _, p := range []*dpb.Picture{before1, before2, after1, after2} {
		d.Add(p)
	}

	b := New(d, nil)
	current := dpb.NewPicture()
	current.SliceType = 1 // B
	current.PicOrderCnt = 30

	lists := b.BuildInitial(current, current.SliceType)

	wantL0 := []*dpb.Picture{before2, before1, after1, after2}
	wantL1 := []*dpb.Picture{after1, after2, before2, before1}
	assertPictureSlice(t, lists.L0, wantL0)
	assertPictureSlice(t, lists.L1, wantL1)
}

func TestBuildBFrameIdenticalListsSwapped(t *testing.T) {
	d := dpb.New(nil)
	d.SetMaxNumFrames(8)

	// Only pictures after current POC: list0 and list1 would otherwise be
	// identical, triggering the first-two-entries swap rule.
	after1 := shortRef(1, 40)
	after2 := shortRef(2, 50)
	d.Add(after1)
	d.Add(after2)

	b := New(d, nil)
	current := dpb.NewPicture()
	current.SliceType = 1
	current.PicOrderCnt = 30

	lists := b.BuildInitial(current, current.SliceType)

	assertPictureSlice(t, lists.L0, []*dpb.Picture{after1, after2})
	assertPictureSlice(t, lists.L1, []*dpb.Picture{after2, after1})
}

func TestApplyModificationShortTerm(t *testing.T) {
	d := dpb.New(nil)
	d.SetMaxNumFrames(8)

	p3 := shortRef(3, 30)
	p2 := shortRef(2, 20)
	p1 := shortRef(1, 10)
	for _, p := range []*dpb.Picture{p1, p2, p3} {
		d.Add(p)
	}

	b := New(d, nil)
	initial := []*dpb.Picture{p3, p2, p1}

	mod := &h264dec.RefPicListModification{
		RefPicListModificationFlag: [2]bool{true, false},
		ModificationOfPicNums:      [2][]int{{1, 3}, nil},
		AbsDiffPicNumMinus1:        [2][]int{{0}, nil}, // picNumPred(3) + 1 = 4 -> wraps to 4-maxPicNum
	}

	maxPicNum := 16
	got := b.ApplyModification(initial, mod, 0, 2, 3, maxPicNum)

	if len(got) != 3 {
		t.Fatalf("got len %d, want 3", len(got))
	}
	// picNumNoWrap = currPicNum(3) + 1 = 4 exceeds currPicNum, so the
	// looked-up pic_num is 4 - maxPicNum = -12; no reference carries it, so
	// the modification is unresolvable and the list is left unshifted.
	if got[0] != p3 {
		t.Errorf("got[0] = %v, want p3 (no-op on unresolved modification)", got[0])
	}
}

func TestApplyModificationNoFlagTruncates(t *testing.T) {
	d := dpb.New(nil)
	b := New(d, nil)

	p1 := shortRef(1, 10)
	p2 := shortRef(2, 20)
	p3 := shortRef(3, 30)
	initial := []*dpb.Picture{p3, p2, p1}

	got := b.ApplyModification(initial, nil, 0, 1, 3, 16)
	if len(got) != 2 {
		t.Fatalf("got len %d, want 2 (numRefIdxActiveMinus1+1)", len(got))
	}
	assertPictureSlice(t, got, []*dpb.Picture{p3, p2})
}

func TestApplyModificationLongTerm(t *testing.T) {
	d := dpb.New(nil)
	p1 := shortRef(1, 10)
	p2 := shortRef(2, 20)
	lt := longRef(5, 0)
	d.Add(p1)
	d.Add(p2)
	d.Add(lt)

	b := New(d, nil)
	initial := []*dpb.Picture{p2, p1}

	mod := &h264dec.RefPicListModification{
		RefPicListModificationFlag: [2]bool{true, false},
		ModificationOfPicNums:      [2][]int{{2, 3}, nil},
		LongTermPicNum:             [2][]int{{5}, nil},
	}

	got := b.ApplyModification(initial, mod, 0, 1, 2, 16)
	if len(got) != 2 {
		t.Fatalf("got len %d, want 2", len(got))
	}
	if got[0] != lt {
		t.Errorf("got[0] = %v, want the long-term picture inserted at index 0", got[0])
	}
}

func TestInterleaveFields(t *testing.T) {
	top1 := dpb.NewPicture()
	top1.Field = dpb.FieldTop
	bot1 := dpb.NewPicture()
	bot1.Field = dpb.FieldBottom
	dpb.Pair(top1, bot1)

	top2 := dpb.NewPicture()
	top2.Field = dpb.FieldTop
	bot2 := dpb.NewPicture()
	bot2.Field = dpb.FieldBottom
	dpb.Pair(top2, bot2)

	got := interleaveFields([]*dpb.Picture{top1, top2}, dpb.FieldTop)
	want := []*dpb.Picture{top1, bot1, top2, bot2}
	assertPictureSlice(t, got, want)
}

func assertPictureSlice(t *testing.T, got, want []*dpb.Picture) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got len %d, want len %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("index %d: got %p, want %p", i, got[i], want[i])
		}
	}
}
