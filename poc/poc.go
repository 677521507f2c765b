/*
DESCRIPTION
  poc.go computes a Picture's picture order count under the three
  pic_order_cnt_type variants defined by section 8.2.1 of ITU-T H.264.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package poc

import (
	"github.com/ausocean/h264decoder/codec/h264/h264dec"
	"github.com/ausocean/h264decoder/dpb"
	"github.com/pkg/errors"
)

// ErrUnsupportedType is returned when sps.pic_order_cnt_type is not 0, 1 or 2.
var ErrUnsupportedType = errors.New("poc: unsupported pic_order_cnt_type")

// ErrNoRefFramesInCycle is returned for a type-1 stream whose SPS declares
// num_ref_frames_in_pic_order_cnt_cycle == 0, which makes the type-1
// derivation ill-defined.
var ErrNoRefFramesInCycle = errors.New("poc: num_ref_frames_in_pic_order_cnt_cycle is 0 under pic_order_cnt_type 1")

// Calculator maintains the running state the type-0 and type-1/2
// derivations need across pictures: the previous reference picture's MSB,
// LSB and frame_num_offset.
type Calculator struct {
	prevRefPicOrderCntMsb int
	prevRefPicOrderCntLsb int
	prevRefFieldBottom    bool

	// prevTopFieldOrderCnt is the previous reference picture's (possibly
	// MMCO-5-adjusted) top field order count, used as the substitute
	// previous LSB under type 0 when that picture carried MMCO-5.
	prevTopFieldOrderCnt int

	prevFrameNum       int
	prevFrameNumOffset int
	prevHasMemMgmt5    bool
}

// New returns a Calculator with zeroed running state, as at the start of a
// coded video sequence.
func New() *Calculator { return &Calculator{} }

// SetPrevMemMgmt5 records that the previous reference picture carried
// MMCO-5, along with its (already MMCO-5-adjusted) top field order count
// and whether it was a bottom field. The Driver calls this immediately
// after Dpb.PerformMMCO executes operation 5 on a picture, so the next
// Compute call under type 0 uses the correct substitute previous LSB.
func (c *Calculator) SetPrevMemMgmt5(topFieldOrderCnt int, wasBottomField bool) {
	c.prevHasMemMgmt5 = true
	c.prevTopFieldOrderCnt = topFieldOrderCnt
	c.prevRefFieldBottom = wasBottomField
}

// Reset clears the running state, as at the start of a new coded video
// sequence (an IDR resets prevFrameNum/prevFrameNumOffset to 0 too, but
// those are recomputed naturally on the next Compute call since p.IDR is
// checked directly).
func (c *Calculator) Reset() {
	*c = Calculator{}
}

// Compute assigns p's top/bottom/frame picture order count fields, given
// the active SPS and the slice-header-derived fields already copied onto p
// (PicOrderCntLsb, DeltaPicOrderCntBottom, DeltaPicOrderCnt, FrameNum,
// IDR, Ref, Field).
func (c *Calculator) Compute(sps *h264dec.SPS, p *dpb.Picture) error {
	switch sps.PicOrderCountType {
	case 0:
		return c.computeType0(sps, p)
	case 1:
		return c.computeType1(sps, p)
	case 2:
		return c.computeType2(sps, p)
	default:
		return ErrUnsupportedType
	}
}

func (c *Calculator) computeType0(sps *h264dec.SPS, p *dpb.Picture) error {
	maxLsb := int(sps.MaxPicOrderCntLsb())

	prevMsb, prevLsb := c.prevRefPicOrderCntMsb, c.prevRefPicOrderCntLsb
	if p.IDR {
		prevMsb, prevLsb = 0, 0
	} else if c.prevHasMemMgmt5 {
		prevMsb = 0
		if c.prevRefFieldBottom {
			prevLsb = 0
		} else {
			prevLsb = c.prevTopFieldOrderCnt
		}
	}

	lsb := p.PicOrderCntLsb
	var msb int
	switch {
	case lsb < prevLsb && prevLsb-lsb >= maxLsb/2:
		msb = prevMsb + maxLsb
	case lsb > prevLsb && lsb-prevLsb > maxLsb/2:
		msb = prevMsb - maxLsb
	default:
		msb = prevMsb
	}
	p.PicOrderCntMsb = msb

	top := msb + lsb
	bottom := top + p.DeltaPicOrderCntBottom

	c.assignFields(p, top, bottom)

	c.prevHasMemMgmt5 = false
	if p.NalRefIdc != 0 {
		c.prevRefPicOrderCntMsb = msb
		c.prevRefPicOrderCntLsb = lsb
		c.prevRefFieldBottom = p.Field == dpb.FieldBottom
	}
	return nil
}

func (c *Calculator) assignFields(p *dpb.Picture, top, bottom int) {
	switch p.Field {
	case dpb.FieldTop:
		p.TopFieldOrderCnt = top
		p.PicOrderCnt = top
	case dpb.FieldBottom:
		p.BottomFieldOrderCnt = bottom
		p.PicOrderCnt = bottom
	default:
		p.TopFieldOrderCnt = top
		p.BottomFieldOrderCnt = bottom
		p.PicOrderCnt = min(top, bottom)
	}
}

func (c *Calculator) computeType1(sps *h264dec.SPS, p *dpb.Picture) error {
	maxFrameNum := int(sps.MaxFrameNum())

	frameNumOffset := 0
	switch {
	case p.IDR, c.prevHasMemMgmt5:
		frameNumOffset = 0
	case c.prevFrameNum > p.FrameNum:
		frameNumOffset = c.prevFrameNumOffset + maxFrameNum
	default:
		frameNumOffset = c.prevFrameNumOffset
	}

	numRefCycle := int(sps.NumRefFramesInPicOrderCntCycle)
	if numRefCycle == 0 {
		return ErrNoRefFramesInCycle
	}

	absFrameNum := 0
	if numRefCycle != 0 {
		absFrameNum = frameNumOffset + p.FrameNum
	}
	if p.NalRefIdc == 0 && absFrameNum > 0 {
		absFrameNum--
	}

	expectedDeltaPerCycle := 0
	for _, o := range offsetForRefFrame(sps) {
		expectedDeltaPerCycle += o
	}

	expected := 0
	if absFrameNum > 0 {
		cycleCount := (absFrameNum - 1) / numRefCycle
		frameNumInCycle := (absFrameNum - 1) % numRefCycle
		expected = cycleCount * expectedDeltaPerCycle
		for i := 0; i <= frameNumInCycle; i++ {
			expected += offsetForRefFrame(sps)[i]
		}
	}
	if p.NalRefIdc == 0 {
		expected += int(sps.OffsetForNonRefPic)
	}

	top := expected + p.DeltaPicOrderCnt[0]
	bottom := top + int(sps.OffsetForTopToBottomField) + p.DeltaPicOrderCnt[1]

	c.assignFields(p, top, bottom)

	c.prevFrameNum = p.FrameNum
	c.prevFrameNumOffset = frameNumOffset
	c.prevHasMemMgmt5 = p.MemMgmt5
	return nil
}

func (c *Calculator) computeType2(sps *h264dec.SPS, p *dpb.Picture) error {
	maxFrameNum := int(sps.MaxFrameNum())

	frameNumOffset := 0
	switch {
	case p.IDR, c.prevHasMemMgmt5:
		frameNumOffset = 0
	case c.prevFrameNum > p.FrameNum:
		frameNumOffset = c.prevFrameNumOffset + maxFrameNum
	default:
		frameNumOffset = c.prevFrameNumOffset
	}

	var tmp int
	switch {
	case p.IDR:
		tmp = 0
	case p.NalRefIdc == 0:
		tmp = 2*(frameNumOffset+p.FrameNum) - 1
	default:
		tmp = 2 * (frameNumOffset + p.FrameNum)
	}

	c.assignFields(p, tmp, tmp)

	c.prevFrameNum = p.FrameNum
	c.prevFrameNumOffset = frameNumOffset
	c.prevHasMemMgmt5 = p.MemMgmt5
	return nil
}

func offsetForRefFrame(sps *h264dec.SPS) []int {
	return sps.OffsetForRefFrameList
}
