/*
DESCRIPTION
  reflist.go builds the initial P and B reference-picture lists from a Dpb's
  contents (frame and field modes, section 8.2.4.2) and applies a slice's
  per-slice list modification commands (section 8.2.4.3).

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package reflist

import (
	"sort"

	"github.com/ausocean/h264decoder/codec/h264/h264dec"
	"github.com/ausocean/h264decoder/dpb"
	"github.com/ausocean/utils/logging"
)

// Lists holds the two reference-picture lists built for a slice. List1 is
// empty for P/SP slices.
type Lists struct {
	L0 []*dpb.Picture
	L1 []*dpb.Picture
}

// Builder constructs reference lists against a Dpb, logging malformed
// references instead of failing (section 4.4: "logged and skipped").
type Builder struct {
	d   *dpb.Dpb
	log logging.Logger

	hadInvalidRef bool
}

// New returns a Builder over d. log may be nil.
func New(d *dpb.Dpb, log logging.Logger) *Builder {
	return &Builder{d: d, log: log}
}

// HadInvalidReference reports whether the most recent ApplyModification call
// skipped at least one command because it referenced a pic_num or
// long_term_pic_num with no matching picture in the Dpb.
func (b *Builder) HadInvalidReference() bool { return b.hadInvalidRef }

func (b *Builder) logf(msg string, args ...interface{}) {
	if b.log == nil {
		return
	}
	b.log.Warning(msg, args...)
}

// BuildInitial constructs the initial, unmodified reference lists for
// current, per section 8.2.4.2, given sliceType (sliceTypeP/B/SP/SI values
// from the h264dec package's Table 7-6 mapping reduced to base type 0..4).
func (b *Builder) BuildInitial(current *dpb.Picture, sliceType int) Lists {
	isB := sliceType%5 == 1
	isField := current.Field != dpb.FieldFrame

	switch {
	case isB && isField:
		return b.buildBField(current)
	case isB:
		return b.buildBFrame(current)
	case isField:
		return Lists{L0: b.buildPField(current)}
	default:
		return Lists{L0: b.buildPFrame()}
	}
}

func (b *Builder) buildPFrame() []*dpb.Picture {
	short := b.d.GetShortTermRef(false, false, nil)
	sort.SliceStable(short, func(i, j int) bool { return short[i].PicNum > short[j].PicNum })

	long := b.d.GetLongTermRef(false, nil)
	sort.SliceStable(long, func(i, j int) bool { return long[i].LongTermPicNum < long[j].LongTermPicNum })

	return append(short, long...)
}

func (b *Builder) buildPField(current *dpb.Picture) []*dpb.Picture {
	short := b.d.GetShortTermRef(true, false, nil)
	sort.SliceStable(short, func(i, j int) bool { return short[i].FrameNumWrap > short[j].FrameNumWrap })

	long := b.d.GetLongTermRef(false, nil)
	sort.SliceStable(long, func(i, j int) bool { return long[i].LongTermFrameIdx < long[j].LongTermFrameIdx })

	return append(
		interleaveFields(short, current.Field),
		interleaveFields(long, current.Field)...,
	)
}

func (b *Builder) buildBFrame(current *dpb.Picture) Lists {
	excludeNonexisting := current.PicOrderCntType == 0

	before := b.shortTermByPOC(current, excludeNonexisting, true)  // POC < current, descending
	after := b.shortTermByPOC(current, excludeNonexisting, false)  // POC > current, ascending
	long := b.d.GetLongTermRef(false, nil)
	sort.SliceStable(long, func(i, j int) bool { return long[i].LongTermPicNum < long[j].LongTermPicNum })

	l0 := append(append(append([]*dpb.Picture{}, before...), after...), long...)
	l1 := append(append(append([]*dpb.Picture{}, after...), before...), long...)

	if sameList(l0, l1) && len(l0) >= 2 {
		l1[0], l1[1] = l1[1], l1[0]
	}
	return Lists{L0: l0, L1: l1}
}

func (b *Builder) buildBField(current *dpb.Picture) Lists {
	excludeNonexisting := current.PicOrderCntType == 0

	before := b.shortTermByPOC(current, excludeNonexisting, true)
	after := b.shortTermByPOC(current, excludeNonexisting, false)
	long := b.d.GetLongTermRef(true, nil)
	sort.SliceStable(long, func(i, j int) bool { return long[i].LongTermPicNum < long[j].LongTermPicNum })

	frame0 := append(append([]*dpb.Picture{}, before...), after...)
	frame1 := append(append([]*dpb.Picture{}, after...), before...)

	l0 := append(interleaveFields(frame0, current.Field), interleaveFields(long, current.Field)...)
	l1 := append(interleaveFields(frame1, current.Field), interleaveFields(long, current.Field)...)

	if sameList(l0, l1) && len(l0) >= 2 {
		l1[0], l1[1] = l1[1], l1[0]
	}
	return Lists{L0: l0, L1: l1}
}

// shortTermByPOC returns short-term references relative to current's POC:
// with before=true, those with lower POC sorted descending; with
// before=false, those with higher POC sorted ascending.
func (b *Builder) shortTermByPOC(current *dpb.Picture, excludeNonexisting, before bool) []*dpb.Picture {
	all := b.d.GetShortTermRef(!excludeNonexisting, false, nil)
	var out []*dpb.Picture
	for _, p := range all {
		if before && p.PicOrderCnt < current.PicOrderCnt {
			out = append(out, p)
		} else if !before && p.PicOrderCnt > current.PicOrderCnt {
			out = append(out, p)
		}
	}
	if before {
		sort.SliceStable(out, func(i, j int) bool { return out[i].PicOrderCnt > out[j].PicOrderCnt })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].PicOrderCnt < out[j].PicOrderCnt })
	}
	return out
}

func sameList(a, b []*dpb.Picture) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// interleaveFields expands frames, a list of frame-representative pictures
// (each possibly one half of a complementary field pair), into a field-level
// list: the field matching currentParity from each source entry, alternated
// with the field of opposite parity, each queue consumed independently
// (section 8.2.4.2.5).
func interleaveFields(frames []*dpb.Picture, currentParity dpb.Field) []*dpb.Picture {
	var same, opp []*dpb.Picture
	for _, f := range frames {
		s, o := fieldsOf(f, currentParity)
		if s != nil {
			same = append(same, s)
		}
		if o != nil {
			opp = append(opp, o)
		}
	}

	var out []*dpb.Picture
	i, j := 0, 0
	takeSame := true
	for i < len(same) || j < len(opp) {
		if takeSame && i < len(same) {
			out = append(out, same[i])
			i++
		} else if !takeSame && j < len(opp) {
			out = append(out, opp[j])
			j++
		} else if i < len(same) {
			out = append(out, same[i])
			i++
		} else if j < len(opp) {
			out = append(out, opp[j])
			j++
		}
		takeSame = !takeSame
	}
	return out
}

// fieldsOf returns, for representative picture f, the field matching
// currentParity (if present) and the field of the opposite parity (if
// present).
func fieldsOf(f *dpb.Picture, currentParity dpb.Field) (same, opp *dpb.Picture) {
	if f.Field == currentParity {
		same = f
		opp = f.OtherField
	} else {
		opp = f
		same = f.OtherField
	}
	return same, opp
}

// ApplyModification applies a slice's ref_pic_list_modification commands to
// list (one of Lists.L0/L1, listIdx selecting which), per section 8.2.4.3,
// then truncates or pads the result to numRefIdxActiveMinus1+1 entries.
// currPicNum and maxPicNum come from the slice header's frame_num /
// field_pic_flag derivation (section 7.4.3). Unresolvable commands (no
// matching picture in the Dpb) are logged and skipped, leaving the list
// unchanged at that position.
func (b *Builder) ApplyModification(
	list []*dpb.Picture,
	mod *h264dec.RefPicListModification,
	listIdx int,
	numRefIdxActiveMinus1 int,
	currPicNum int,
	maxPicNum int,
) []*dpb.Picture {
	b.hadInvalidRef = false

	numRefIdx := numRefIdxActiveMinus1 + 1
	out := make([]*dpb.Picture, len(list))
	copy(out, list)
	for len(out) < numRefIdx {
		out = append(out, nil)
	}

	if mod == nil || !mod.RefPicListModificationFlag[listIdx] {
		if len(out) > numRefIdx {
			out = out[:numRefIdx]
		}
		return out
	}

	picNumPred := currPicNum
	refIdx := 0

	for _, idc := range mod.ModificationOfPicNums[listIdx] {
		if idc == 3 {
			break
		}
		if refIdx >= numRefIdx {
			continue
		}

		var picNumNoWrap int
		switch idc {
		case 0:
			absDiff := mod.AbsDiffPicNumMinus1[listIdx][refIdx] + 1
			picNumNoWrap = picNumPred - absDiff
			if picNumNoWrap < 0 {
				picNumNoWrap += maxPicNum
			}
		case 1:
			absDiff := mod.AbsDiffPicNumMinus1[listIdx][refIdx] + 1
			picNumNoWrap = picNumPred + absDiff
			if picNumNoWrap >= maxPicNum {
				picNumNoWrap -= maxPicNum
			}
		case 2:
			ltpn := mod.LongTermPicNum[listIdx][refIdx]
			pic := b.d.GetLongRefByLongTermPicNum(ltpn)
			if pic == nil {
				b.hadInvalidRef = true
				b.logf("ref pic list modification: no long-term picture for long_term_pic_num", "long_term_pic_num", ltpn)
				refIdx++
				continue
			}
			out = insertModified(out, pic, refIdx, numRefIdx)
			refIdx++
			continue
		default:
			b.logf("ref pic list modification: unknown modification_of_pic_nums_idc", "idc", idc)
			refIdx++
			continue
		}

		picNumPred = picNumNoWrap
		picNum := picNumNoWrap
		if picNum > currPicNum {
			picNum -= maxPicNum
		}
		pic := b.d.GetShortRefByPicNum(picNum)
		if pic == nil {
			b.hadInvalidRef = true
			b.logf("ref pic list modification: no short-term picture for pic_num", "pic_num", picNum)
			refIdx++
			continue
		}
		out = insertModified(out, pic, refIdx, numRefIdx)
		refIdx++
	}

	if len(out) > numRefIdx {
		out = out[:numRefIdx]
	}
	return out
}

// insertModified implements the 8.2.4.3.1/8.2.4.3.2 shift: pic is inserted at
// refIdx, every later entry equal to pic is removed, and everything between
// refIdx and the removal point shifts down by one.
func insertModified(list []*dpb.Picture, pic *dpb.Picture, refIdx, numRefIdx int) []*dpb.Picture {
	out := make([]*dpb.Picture, len(list)+1)
	copy(out, list)

	for i := len(out) - 1; i > refIdx; i-- {
		out[i] = out[i-1]
	}
	out[refIdx] = pic

	nIdx := refIdx + 1
	for i := refIdx + 1; i < len(out); i++ {
		if out[i] == pic {
			continue
		}
		out[nIdx] = out[i]
		nIdx++
	}
	out = out[:nIdx]

	if len(out) > numRefIdx {
		out = out[:numRefIdx]
	}
	return out
}
