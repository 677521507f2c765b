/*
DESCRIPTION
  dpb.go implements the decoded picture buffer: a bounded, order-preserving
  store of Pictures with the add/delete/bump/mark operations specified by
  sections 8.2.5 and C.4 of ITU-T H.264, plus the six memory-management
  control operations a slice's dec_ref_pic_marking may request.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package dpb

import (
	"math"

	"github.com/ausocean/h264decoder/codec/h264/h264dec"
	"github.com/ausocean/utils/logging"
)

// noOutputPOC is the sentinel lastOutputPOC takes when no picture has yet
// been output in the current coded video sequence (reset on IDR/MMCO-5).
const noOutputPOC = math.MinInt64

// BumpLevel selects how eagerly the Dpb outputs pictures versus holding them
// for reordering, per section 4.2's bump policy table.
type BumpLevel int

const (
	NormalLatency BumpLevel = iota
	LowLatency
	VeryLowLatency
)

// Dpb is the decoded picture buffer.
type Dpb struct {
	pictures []*Picture

	maxNumFrames        int
	maxNumReorderFrames int
	interlaced          bool

	numOutputNeeded int64

	lastOutputPOC    int64
	lastOutputNonRef bool

	hadInvalidMMCORef bool

	log logging.Logger
}

// New returns an empty Dpb. log may be nil, in which case the Dpb does not
// log.
func New(log logging.Logger) *Dpb {
	return &Dpb{log: log, lastOutputPOC: noOutputPOC}
}

// HadInvalidMMCOReference reports whether the most recent PerformMMCO call
// skipped at least one operation because it referenced a pic_num,
// long_term_pic_num or long_term_frame_idx with no matching picture.
func (d *Dpb) HadInvalidMMCOReference() bool { return d.hadInvalidMMCORef }

func (d *Dpb) logf(msg string, args ...interface{}) {
	if d.log == nil {
		return
	}
	d.log.Warning(msg, args...)
}

// SetMaxNumFrames reconfigures the Dpb's frame capacity. The caller must
// have drained the Dpb first.
func (d *Dpb) SetMaxNumFrames(n int) { d.maxNumFrames = n }

// SetMaxNumReorderFrames reconfigures the reorder window. The caller must
// have drained the Dpb first.
func (d *Dpb) SetMaxNumReorderFrames(n int) { d.maxNumReorderFrames = n }

// SetInterlaced reconfigures interlaced mode. The caller must have drained
// the Dpb first.
func (d *Dpb) SetInterlaced(b bool) { d.interlaced = b }

// MaxNumReorderFrames returns the configured reorder window.
func (d *Dpb) MaxNumReorderFrames() int { return d.maxNumReorderFrames }

// Len returns the number of pictures currently stored.
func (d *Dpb) Len() int { return len(d.pictures) }

// NumOutputNeeded returns the count of pictures currently needing output.
func (d *Dpb) NumOutputNeeded() int64 { return d.numOutputNeeded }

// Pictures returns the Dpb's backing store in insertion order. Callers must
// not mutate the returned slice.
func (d *Dpb) Pictures() []*Picture { return d.pictures }

// Add inserts picture into the Dpb.
func (d *Dpb) Add(p *Picture) {
	if p.Nonexisting {
		p.NeededForOutput = false
	} else {
		p.NeededForOutput = true
		if p.Field == FieldFrame || p.SecondField {
			d.numOutputNeeded++
		}
	}

	if p.PicOrderCnt == 0 {
		d.lastOutputPOC = noOutputPOC
		d.lastOutputNonRef = false
	}

	d.pictures = append(d.pictures, p)

	if max := d.maxNumFrames * (1 + boolToInt(d.interlaced)); len(d.pictures) > max {
		d.logf("dpb: capacity invariant violated", "have", len(d.pictures), "max", max)
	}
}

// DeleteUnused removes every picture that is neither needed for output nor
// a reference, preserving the relative order of survivors.
func (d *Dpb) DeleteUnused() {
	out := d.pictures[:0:0]
	for _, p := range d.pictures {
		if !p.NeededForOutput && p.Ref == RefNone {
			continue
		}
		out = append(out, p)
	}
	d.pictures = out
}

// GetShortRefByPicNum returns the short-term reference with the given
// pic_num, or nil.
func (d *Dpb) GetShortRefByPicNum(picNum int) *Picture {
	for _, p := range d.pictures {
		if p.Ref == RefShortTerm && p.PicNum == picNum {
			return p
		}
	}
	return nil
}

// GetLongRefByLongTermPicNum returns the long-term reference with the given
// long_term_pic_num, or nil.
func (d *Dpb) GetLongRefByLongTermPicNum(ltp int) *Picture {
	for _, p := range d.pictures {
		if p.Ref == RefLongTerm && p.LongTermPicNum == ltp {
			return p
		}
	}
	return nil
}

// GetLowestFrameNumShortRef returns the short-term reference with the
// smallest frame_num_wrap, for sliding-window eviction. Returns nil if there
// are no short-term references.
func (d *Dpb) GetLowestFrameNumShortRef() *Picture {
	var lowest *Picture
	for _, p := range d.pictures {
		if p.Ref != RefShortTerm {
			continue
		}
		if lowest == nil || p.FrameNumWrap < lowest.FrameNumWrap {
			lowest = p
		}
	}
	return lowest
}

// GetShortTermRef appends every short-term reference to out, respecting
// includeNonexisting and includeSecondField, and returns the result.
func (d *Dpb) GetShortTermRef(includeNonexisting, includeSecondField bool, out []*Picture) []*Picture {
	for _, p := range d.pictures {
		if p.Ref != RefShortTerm {
			continue
		}
		if p.Nonexisting && !includeNonexisting {
			continue
		}
		if p.SecondField && !includeSecondField {
			continue
		}
		out = append(out, p)
	}
	return out
}

// GetLongTermRef appends every long-term reference to out, respecting
// includeSecondField, and returns the result.
func (d *Dpb) GetLongTermRef(includeSecondField bool, out []*Picture) []*Picture {
	for _, p := range d.pictures {
		if p.Ref != RefLongTerm {
			continue
		}
		if p.SecondField && !includeSecondField {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MarkAllNonRef transitions every picture's reference status to None.
func (d *Dpb) MarkAllNonRef() {
	for _, p := range d.pictures {
		p.Ref = RefNone
	}
}

// HasEmptyFrameBuffer reports whether the Dpb has room for one more frame
// (or, for interlaced streams, one more field in an incomplete pair).
func (d *Dpb) HasEmptyFrameBuffer() bool {
	if !d.interlaced {
		return len(d.pictures) < d.maxNumFrames
	}
	complete := 0
	counted := make(map[*Picture]bool)
	for _, p := range d.pictures {
		if counted[p] {
			continue
		}
		if p.Field == FieldFrame {
			complete++
			counted[p] = true
			continue
		}
		if p.OtherField != nil {
			counted[p] = true
			counted[p.OtherField] = true
		} else {
			counted[p] = true
		}
		complete++
	}
	return complete < d.maxNumFrames
}

// lowestPendingPOC returns the lowest POC among pictures needing output,
// and whether any such picture exists.
func (d *Dpb) lowestPendingPOC() (int, bool) {
	found := false
	lowest := 0
	for _, p := range d.pictures {
		if !p.NeededForOutput {
			continue
		}
		if !found || p.PicOrderCnt < lowest {
			lowest = p.PicOrderCnt
			found = true
		}
	}
	return lowest, found
}


// NeedsBump implements the bump policy of section 4.2: whether a picture
// about to be inserted (or the current picture being finished, with
// toInsert == nil for the "bump once more" pattern) forces an output bump.
func (d *Dpb) NeedsBump(toInsert *Picture, level BumpLevel) bool {
	lowest, havePending := d.lowestPendingPOC()

	if toInsert != nil {
		if !d.HasEmptyFrameBuffer() && toInsert.Ref != RefNone {
			return true
		}
		if !d.HasEmptyFrameBuffer() && havePending && toInsert.PicOrderCnt > lowest {
			return true
		}
		if toInsert.IDR && !toInsert.noOutputOfPriorPics() {
			return true
		}
		if toInsert.MemMgmt5 {
			return true
		}
	}

	if level == NormalLatency {
		return false
	}

	// LowLatency.
	if toInsert != nil && toInsert.PicOrderCntType == 2 {
		return true
	}
	if toInsert != nil && d.lastOutputNonRef && toInsert.Ref == RefNone && d.HasEmptyFrameBuffer() {
		return true
	}
	if havePending && d.numOutputNeeded >= int64(d.maxNumReorderFrames) {
		return true
	}
	if toInsert != nil && havePending && toInsert.PicOrderCnt > 0 && lowest < 0 {
		return true
	}
	if toInsert != nil && toInsert.Ref == RefNone && havePending && toInsert.PicOrderCnt > lowest {
		return true
	}

	if level == LowLatency {
		return false
	}

	// VeryLowLatency.
	if havePending && d.lastOutputPOC != noOutputPOC && int64(lowest) > d.lastOutputPOC && int64(lowest)-d.lastOutputPOC <= 2 {
		return true
	}

	return false
}

// noOutputOfPriorPics reports the IDR's no_output_of_prior_pics_flag, read
// off the picture's dec_ref_pic_marking (absent means "not set", i.e. 0).
func (p *Picture) noOutputOfPriorPics() bool {
	return p.DecRefPicMarking != nil && p.DecRefPicMarking.NoOutputOfPriorPicsFlag
}

// Bump outputs one picture: the lowest-POC needed_for_output picture, or,
// with drain false, the lowest-POC picture overall as an emergency bump
// when none is needed_for_output. It returns the bumped picture (combined
// with its field partner, if any), or nil if the Dpb is empty or, with drain
// true, no picture needs output.
func (d *Dpb) Bump(drain bool) *Picture {
	var chosen *Picture
	var chosenIdx int
	for i, p := range d.pictures {
		if !p.NeededForOutput {
			continue
		}
		if chosen == nil || p.PicOrderCnt < chosen.PicOrderCnt {
			chosen = p
			chosenIdx = i
		}
	}

	emergency := false
	if chosen == nil {
		if drain {
			return nil
		}
		for i, p := range d.pictures {
			if chosen == nil || p.PicOrderCnt < chosen.PicOrderCnt {
				chosen = p
				chosenIdx = i
			}
		}
		if chosen == nil {
			return nil
		}
		emergency = true
	}

	chosen.NeededForOutput = false
	if !emergency {
		d.numOutputNeeded--
	}

	if emergency || !chosen.RefIsReference() || drain {
		d.removeAt(chosenIdx)
	}

	if other := chosen.OtherField; other != nil {
		other.NeededForOutput = false
		chosen.Interlaced = true
		topPOC, botPOC := chosen.PicOrderCnt, other.PicOrderCnt
		if chosen.Field == FieldBottom {
			topPOC, botPOC = other.PicOrderCnt, chosen.PicOrderCnt
		}
		chosen.TopFieldFirst = topPOC <= botPOC
		if !other.RefIsReference() {
			d.removePicture(other)
		}
	}

	d.lastOutputPOC = int64(chosen.PicOrderCnt)
	d.lastOutputNonRef = chosen.Ref == RefNone

	return chosen
}

// RefIsReference reports whether p currently holds any reference status.
func (p *Picture) RefIsReference() bool { return p.Ref != RefNone }

func (d *Dpb) removeAt(i int) {
	d.pictures = append(d.pictures[:i], d.pictures[i+1:]...)
}

func (d *Dpb) removePicture(p *Picture) {
	for i, q := range d.pictures {
		if q == p {
			d.removeAt(i)
			return
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// PerformMMCO executes the memory-management-control operations parsed from
// a slice's dec_ref_pic_marking, in order, against picture (the current
// picture, already inserted into the pic_num space by the Driver).
func (d *Dpb) PerformMMCO(mmcos []h264dec.MMCO, picture *Picture) {
	d.hadInvalidMMCORef = false
	for _, m := range mmcos {
		switch m.Op {
		case 0:
			return
		case 1:
			picNum := picture.PicNum - (m.DifferenceOfPicNumsMinus1 + 1)
			if p := d.GetShortRefByPicNum(picNum); p != nil {
				p.SetReference(RefNone, true)
			} else {
				d.hadInvalidMMCORef = true
				d.logf("dpb: mmco 1: no short-term reference found", "pic_num", picNum)
			}
		case 2:
			if p := d.GetLongRefByLongTermPicNum(m.LongTermPicNum); p != nil {
				p.SetReference(RefNone, true)
			} else {
				d.hadInvalidMMCORef = true
				d.logf("dpb: mmco 2: no long-term reference found", "long_term_pic_num", m.LongTermPicNum)
			}
		case 3:
			d.mmco3(m, picture)
		case 4:
			maxIdx := m.MaxLongTermFrameIdxPlus1 - 1
			for _, p := range d.pictures {
				if p.Ref == RefLongTerm && p.LongTermFrameIdx > maxIdx {
					p.SetReference(RefNone, false)
				}
			}
		case 5:
			d.MarkAllNonRef()
			picture.MemMgmt5 = true
			picture.FrameNum = 0
			tmp := picture.PicOrderCnt
			picture.TopFieldOrderCnt -= tmp
			picture.BottomFieldOrderCnt -= tmp
			picture.PicOrderCnt = 0
		case 6:
			d.unmarkLongTermAtIdx(m.LongTermFrameIdx, picture)
			picture.SetReference(RefLongTerm, false)
			picture.LongTermFrameIdx = m.LongTermFrameIdx
			if picture.OtherField != nil && picture.OtherField.Ref == RefLongTerm {
				picture.OtherField.LongTermFrameIdx = m.LongTermFrameIdx
			}
		default:
			d.logf("dpb: mmco: unrecognised operation, ignoring", "op", m.Op)
		}
	}
}

// unmarkLongTermAtIdx unmarks whichever long-term picture currently holds
// longTermFrameIdx, per the field-pair handling spelled out for MMCO-3/6.
func (d *Dpb) unmarkLongTermAtIdx(longTermFrameIdx int, target *Picture) {
	for _, p := range d.pictures {
		if p.Ref != RefLongTerm || p.LongTermFrameIdx != longTermFrameIdx || p == target {
			continue
		}
		if p.OtherField != nil && p.OtherField.Ref == RefLongTerm && p.Complementary(p.OtherField) {
			p.SetReference(RefNone, true)
		} else if target.OtherField == nil || p != target.OtherField {
			p.Ref = RefNone
		}
	}
}

// mmco3 promotes a short-term picture to long-term under the requested
// frame index, per the nested field-pair rules preserved verbatim from the
// reference decoder's ordering of checks (see DESIGN.md's Open Question
// notes).
func (d *Dpb) mmco3(m h264dec.MMCO, picture *Picture) {
	picNum := picture.PicNum - (m.DifferenceOfPicNumsMinus1 + 1)
	target := d.GetShortRefByPicNum(picNum)
	if target == nil {
		d.hadInvalidMMCORef = true
		d.logf("dpb: mmco 3: no short-term reference found", "pic_num", picNum)
		return
	}

	d.unmarkLongTermAtIdx(m.LongTermFrameIdx, target)

	target.SetReference(RefLongTerm, false)
	target.LongTermFrameIdx = m.LongTermFrameIdx
	if target.OtherField != nil && target.OtherField.Ref == RefLongTerm {
		target.OtherField.LongTermFrameIdx = m.LongTermFrameIdx
	}
}
