/*
DESCRIPTION
  driver.go implements the Driver: the central state machine that feeds
  parsed SPS/PPS/slice-header NAL content through the PocCalculator, the
  Dpb and the reference-list builder, and drives a Backend through the
  new_sequence/new_picture/start_picture/decode_slice/end_picture/
  output_picture lifecycle described by section 4.5.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package decoder

import (
	"github.com/pkg/errors"

	"github.com/ausocean/h264decoder/codec/h264/h264dec"
	"github.com/ausocean/h264decoder/dpb"
	"github.com/ausocean/h264decoder/level"
	"github.com/ausocean/h264decoder/poc"
	"github.com/ausocean/h264decoder/reflist"
	"github.com/ausocean/utils/logging"
)

// Driver is the decoder's central state machine. It owns the Dpb, the
// OutputQueue, the current pending picture and the running POC/frame_num
// tracking state. A Driver instance is serially driven by its owning
// upstream element; it performs no background work and is not safe for
// concurrent use.
type Driver struct {
	cfg     Config
	backend Backend
	log     logging.Logger

	activeSPS *h264dec.SPS
	ppsTable  map[int]*h264dec.PPS
	sizing    level.Sizing

	dpb        *dpb.Dpb
	pocCalc    *poc.Calculator
	refBuilder *reflist.Builder

	currentPicture *dpb.Picture
	currentSlice   *h264dec.SliceHeader
	currentFrame   *Frame
	currentLists   reflist.Lists

	lastField      *dpb.Picture
	lastFieldFrame *Frame

	frames map[uint32]*Frame

	prevRefFrameNum int
	prevRefIdcZero  bool
	pendingDiscont  bool
	lastErr         error

	outQueue                *OutputQueue
	reorderCounter          int64
	lastReorderFrameNumber  int64
	maxReorderObserved      int64
	latency                 uint32
	haveOutputSinceSeqStart bool
}

// New returns a Driver driving backend with the given configuration.
func New(backend Backend, cfg Config) *Driver {
	d := &Driver{
		cfg:      cfg,
		backend:  backend,
		log:      cfg.Logger,
		ppsTable: make(map[int]*h264dec.PPS),
		pocCalc:  poc.New(),
		frames:   make(map[uint32]*Frame),
		outQueue: &OutputQueue{},
	}
	return d
}

func (d *Driver) logf(msg string, args ...interface{}) {
	if d.log == nil {
		return
	}
	d.log.Warning(msg, args...)
}

func (d *Driver) debugf(msg string, args ...interface{}) {
	if d.log == nil {
		return
	}
	d.log.Debug(msg, args...)
}

// LastError returns the error detail behind the most recent StatusError or
// StatusNotNegotiated result, distinguishing which section-7 error kind
// occurred beyond the coarse Status the call itself returned. It also holds
// ErrInvalidReference after a skipped reference-list or MMCO reference,
// which leaves the returned Status at StatusOK. It is not reset between
// calls.
func (d *Driver) LastError() error { return d.lastErr }

// HandleSPS processes a newly parsed sequence parameter set: on a material
// change from the active SPS it drains the Dpb and resets latency
// bookkeeping before negotiating the new sequence with the back end.
func (d *Driver) HandleSPS(sps *h264dec.SPS) Status {
	if !sps.FrameMBSOnlyFlag {
		if _, ok := d.backend.(FieldPictureBackend); !ok {
			d.lastErr = ErrUnsupportedStream
			d.logf("decoder: interlaced SPS but backend does not support field pictures")
			return StatusNotNegotiated
		}
	}

	if d.activeSPS != nil && materiallySPSChange(d.activeSPS, sps) {
		d.drainInternal()
		d.resetLatency()
	}

	sizing := level.DpbSizing(sps, d.cfg.Compliance)
	delay := d.preferredDelayFor()

	status := d.backend.NewSequence(sps, sizing.MaxDpbSize+int(delay))
	if status != StatusOK {
		return status
	}

	d.activeSPS = sps
	d.sizing = sizing
	d.dpb = dpb.New(d.log)
	d.dpb.SetMaxNumFrames(sizing.MaxDpbSize)
	d.dpb.SetMaxNumReorderFrames(sizing.MaxNumReorderFrames)
	d.dpb.SetInterlaced(!sps.FrameMBSOnlyFlag)
	d.refBuilder = reflist.New(d.dpb, d.log)
	d.pocCalc.Reset()
	d.pendingDiscont = true
	return StatusOK
}

// materiallySPSChange reports whether new requires draining and
// renegotiating against old: a width/height/DPB-sizing-relevant change.
func materiallySPSChange(old, new *h264dec.SPS) bool {
	return old.PicWidthInMBSMinus1 != new.PicWidthInMBSMinus1 ||
		old.PicHeightInMapUnitsMinus1 != new.PicHeightInMapUnitsMinus1 ||
		old.FrameMBSOnlyFlag != new.FrameMBSOnlyFlag ||
		old.MaxNumRefFrames != new.MaxNumRefFrames
}

// HandlePPS stores a newly parsed picture parameter set, indexed by its id.
// FMO rejection already happens at parse time (h264dec.NewPPS returns
// h264dec.ErrFMOUnsupported), so there is nothing further to validate here.
func (d *Driver) HandlePPS(pps *h264dec.PPS) {
	d.ppsTable[pps.ID] = pps
}

// fieldOf returns the Field a slice header's field_pic_flag/bottom_field_flag
// describe.
func fieldOf(sh *h264dec.SliceHeader) dpb.Field {
	if !sh.FieldPic {
		return dpb.FieldFrame
	}
	if sh.BottomField {
		return dpb.FieldBottom
	}
	return dpb.FieldTop
}

// isNewPicture implements a reduced form of the first-slice-of-a-picture
// test of 7.4.1.2.4: any of these differing between consecutive slices
// means the later one starts a new picture.
func isNewPicture(prev, cur *h264dec.SliceHeader, prevIDR, curIDR bool, prevRefIdcZero, curRefIdcZero bool) bool {
	if prev == nil {
		return true
	}
	switch {
	case prev.FrameNum != cur.FrameNum:
		return true
	case prev.PPSID != cur.PPSID:
		return true
	case prev.FieldPic != cur.FieldPic:
		return true
	case prev.FieldPic && prev.BottomField != cur.BottomField:
		return true
	case prevIDR != curIDR:
		return true
	case curIDR && prev.IDRPicID != cur.IDRPicID:
		return true
	case prevRefIdcZero != curRefIdcZero:
		return true
	case prev.PicOrderCntLsb != cur.PicOrderCntLsb:
		return true
	case prev.DeltaPicOrderCntBottom != cur.DeltaPicOrderCntBottom:
		return true
	default:
		return false
	}
}

// HandleSliceHeader processes one parsed slice header. frame is the routing
// handle for the input access unit this slice arrived in; it is only
// consulted when this slice starts a new picture.
func (d *Driver) HandleSliceHeader(sh *h264dec.SliceHeader, nalType uint8, nalRefIdc int, frame *Frame) Status {
	if d.activeSPS == nil {
		d.lastErr = ErrNoActiveSPS
		d.logf("decoder: slice arrived with no active SPS")
		return StatusError
	}
	if _, ok := d.ppsTable[sh.PPSID]; !ok {
		d.lastErr = ErrUnknownPPS
		d.logf("decoder: slice references unknown PPS", "pps_id", sh.PPSID)
		return StatusError
	}

	idr := nalType == h264dec.NALTypeIDR
	curRefIdcZero := nalRefIdc == 0

	if d.currentPicture != nil && isNewPicture(d.currentSlice, sh, d.currentPicture.IDR, idr, d.prevRefIdcZero, curRefIdcZero) {
		if s := d.finishCurrentPicture(); s != StatusOK {
			d.logf("decoder: finishing previous picture failed", "status", s.String())
		}
	}

	if d.currentPicture == nil {
		if s := d.startCurrentPicture(sh, idr, nalRefIdc, frame); s != StatusOK {
			d.currentPicture = nil
			d.currentSlice = nil
			return s
		}
	}

	d.prevRefIdcZero = curRefIdcZero
	return d.decodeCurrentSlice(sh)
}

func (d *Driver) decodeCurrentSlice(sh *h264dec.SliceHeader) Status {
	l0, l1 := d.currentLists.L0, d.currentLists.L1
	base := sh.SliceType % 5
	if base != 2 && base != 4 { // not I or SI
		maxPicNum := d.maxPicNum()
		currPicNum := d.currPicNum(d.currentPicture)
		l0 = d.refBuilder.ApplyModification(l0, sh.RefPicListModification, 0, sh.NumRefIdxL0ActiveMinus1, currPicNum, maxPicNum)
		if d.refBuilder.HadInvalidReference() {
			d.lastErr = ErrInvalidReference
		}
		if base == 1 { // B
			l1 = d.refBuilder.ApplyModification(l1, sh.RefPicListModification, 1, sh.NumRefIdxL1ActiveMinus1, currPicNum, maxPicNum)
			if d.refBuilder.HadInvalidReference() {
				d.lastErr = ErrInvalidReference
			}
		} else {
			l1 = nil
		}
	} else {
		l0, l1 = nil, nil
	}
	return d.backend.DecodeSlice(d.currentPicture, sh, l0, l1)
}

func (d *Driver) maxPicNum() int {
	maxFrameNum := d.activeSPS.MaxFrameNum()
	if d.currentPicture.FieldPic {
		return 2 * maxFrameNum
	}
	return maxFrameNum
}

func (d *Driver) currPicNum(p *dpb.Picture) int {
	if p.FieldPic {
		return 2*p.FrameNum + 1
	}
	return p.FrameNum
}

// startCurrentPicture implements the start_current_picture step: picture
// allocation (fresh or paired second field), frame_num-gap handling, POC
// computation, IDR flushing, pic_num refresh and reference-list
// construction, finishing with backend.start_picture.
func (d *Driver) startCurrentPicture(sh *h264dec.SliceHeader, idr bool, nalRefIdc int, frame *Frame) Status {
	picture := dpb.NewPicture()
	picture.FieldPic = sh.FieldPic
	picture.Field = fieldOf(sh)

	if sh.FieldPic && d.lastField != nil && d.lastField.FrameNum == sh.FrameNum && d.lastField.Field == picture.Field {
		d.lastErr = ErrStreamInconsistency
		d.logf("decoder: duplicate field parity for frame_num with no complementary field", "frame_num", sh.FrameNum)
		return StatusError
	}

	paired := false
	if sh.FieldPic && d.lastField != nil && d.lastField.FrameNum == sh.FrameNum && d.lastField.Field != picture.Field {
		dpb.Pair(d.lastField, picture)
		paired = true
	}

	if paired {
		if fb, ok := d.backend.(FieldPictureBackend); ok {
			if s := fb.NewFieldPicture(d.lastField, picture); s != StatusOK {
				return s
			}
		} else if s := d.backend.NewPicture(frame, picture); s != StatusOK {
			return s
		}
		frame = d.lastFieldFrame // the pair is routed via the first field's frame
		d.lastField = nil
		d.lastFieldFrame = nil
	} else {
		if s := d.backend.NewPicture(frame, picture); s != StatusOK {
			return s
		}
	}

	picture.Discont = d.pendingDiscont
	d.pendingDiscont = false

	picture.SystemFrameNumber = frame.SystemFrameNumber
	picture.ReorderFrameNumber = d.reorderCounter
	d.reorderCounter++
	d.frames[frame.SystemFrameNumber] = frame

	maxFrameNum := d.activeSPS.MaxFrameNum()
	if idr {
		d.prevRefFrameNum = 0
	} else {
		d.handleFrameNumGap(sh.FrameNum, maxFrameNum)
	}

	picture.FrameNum = sh.FrameNum
	picture.IDR = idr
	picture.IdrPicID = sh.IDRPicID
	picture.NalRefIdc = nalRefIdc
	picture.SliceType = sh.SliceType
	picture.PicOrderCntType = d.activeSPS.PicOrderCountType
	picture.PicOrderCntLsb = sh.PicOrderCntLsb
	picture.DeltaPicOrderCntBottom = sh.DeltaPicOrderCntBottom
	picture.DeltaPicOrderCnt = sh.DeltaPicOrderCnt

	if nalRefIdc != 0 {
		picture.SetReference(dpb.RefShortTerm, false)
	}

	if err := d.pocCalc.Compute(d.activeSPS, picture); err != nil {
		d.lastErr = errors.Wrap(ErrStreamInconsistency, err.Error())
		d.logf("decoder: POC computation failed", "error", err.Error())
		return StatusError
	}
	d.debugf("decoder: starting picture", "frame_num", picture.FrameNum, "poc", picture.PicOrderCnt, "field", picture.Field.String())

	picture.DecRefPicMarking = sh.DecRefPicMarking

	if idr {
		noOutput := sh.DecRefPicMarking != nil && sh.DecRefPicMarking.NoOutputOfPriorPicsFlag
		if !noOutput {
			d.drainInternal()
		} else {
			d.clearDpbNoOutput()
		}
	}

	d.updatePicNums(picture)

	d.currentPicture = picture
	d.currentSlice = sh
	d.currentFrame = frame

	base := sh.SliceType % 5
	if base != 2 && base != 4 {
		d.currentLists = d.refBuilder.BuildInitial(picture, sh.SliceType)
	} else {
		d.currentLists = reflist.Lists{}
	}

	return d.backend.StartPicture(picture, sh, d.dpb)
}

// handleFrameNumGap synthesises non-existing short-term reference pictures
// for any frame_num values skipped since the previous reference picture,
// per 8.2.5.2, when the active SPS permits gaps.
func (d *Driver) handleFrameNumGap(frameNum, maxFrameNum int) {
	if !d.activeSPS.GapsInFrameNumValueAllowed {
		return
	}
	expected := (d.prevRefFrameNum + 1) % maxFrameNum
	for expected != frameNum {
		p := dpb.NewPicture()
		p.FrameNum = expected
		p.Nonexisting = true
		p.NalRefIdc = 1
		p.SetReference(dpb.RefShortTerm, false)
		p.PicOrderCntType = d.activeSPS.PicOrderCountType
		if err := d.pocCalc.Compute(d.activeSPS, p); err != nil {
			d.logf("decoder: POC computation failed for gap picture", "frame_num", expected, "error", err.Error())
		}
		d.updatePicNums(p)
		d.slidingWindowMarking(p)
		d.dpb.DeleteUnused()
		for d.dpb.NeedsBump(p, d.cfg.bumpLevel(d.activeSPS.Profile)) {
			d.bumpOne()
		}
		d.dpb.Add(p)
		d.prevRefFrameNum = expected
		expected = (expected + 1) % maxFrameNum
	}
}

// updatePicNums refreshes every reference picture's pic_num / frame_num_wrap
// / long_term_pic_num relative to current, per 8.2.4.1.
func (d *Driver) updatePicNums(current *dpb.Picture) {
	maxFrameNum := d.activeSPS.MaxFrameNum()
	for _, p := range d.dpb.Pictures() {
		if p.Ref == dpb.RefNone {
			continue
		}
		if p.FrameNum > current.FrameNum {
			p.FrameNumWrap = p.FrameNum - maxFrameNum
		} else {
			p.FrameNumWrap = p.FrameNum
		}

		if p.Ref == dpb.RefShortTerm {
			switch {
			case !current.FieldPic:
				p.PicNum = p.FrameNumWrap
			case p.Field == current.Field:
				p.PicNum = 2*p.FrameNumWrap + 1
			default:
				p.PicNum = 2 * p.FrameNumWrap
			}
		}
		if p.Ref == dpb.RefLongTerm {
			switch {
			case !current.FieldPic:
				p.LongTermPicNum = p.LongTermFrameIdx
			case p.Field == current.Field:
				p.LongTermPicNum = 2*p.LongTermFrameIdx + 1
			default:
				p.LongTermPicNum = 2 * p.LongTermFrameIdx
			}
		}
	}
}

// slidingWindowMarking implements the default (non-adaptive) reference
// marking process of 8.2.5.3: unmark short-term references with the
// smallest frame_num_wrap until the reference count is within the SPS's
// limit.
func (d *Driver) slidingWindowMarking(current *dpb.Picture) {
	maxNumRefFrames := int(d.activeSPS.MaxNumRefFrames)
	if maxNumRefFrames < 1 {
		maxNumRefFrames = 1
	}

	count := 0
	for _, p := range d.dpb.Pictures() {
		if p.Ref != dpb.RefNone && !p.SecondField {
			count++
		}
	}
	if current.Ref != dpb.RefNone {
		count++
	}

	for count > maxNumRefFrames {
		lowest := d.dpb.GetLowestFrameNumShortRef()
		if lowest == nil {
			break
		}
		lowest.SetReference(dpb.RefNone, true)
		count--
	}
}

// finishCurrentPicture implements the finish_current_picture step.
func (d *Driver) finishCurrentPicture() Status {
	picture := d.currentPicture
	sh := d.currentSlice
	frame := d.currentFrame

	endStatus := d.backend.EndPicture(picture)
	if endStatus != StatusOK {
		// Marked non-existing rather than removed outright, so later POC
		// and pic_num derivations stay in step with the bitstream.
		picture.Nonexisting = true
		delete(d.frames, frame.SystemFrameNumber)
	}

	d.currentLists = reflist.Lists{}
	d.finishPicture(picture, sh)

	d.currentPicture = nil
	d.currentSlice = nil
	d.currentFrame = nil

	return endStatus
}

func (d *Driver) finishPicture(picture *dpb.Picture, sh *h264dec.SliceHeader) {
	if picture.Ref != dpb.RefNone {
		switch {
		case picture.IDR:
			d.dpb.MarkAllNonRef()
			if picture.DecRefPicMarking != nil && picture.DecRefPicMarking.LongTermReferenceFlag {
				picture.SetReference(dpb.RefLongTerm, true)
				picture.LongTermFrameIdx = 0
			} else {
				picture.SetReference(dpb.RefShortTerm, true)
			}
		case picture.DecRefPicMarking != nil && picture.DecRefPicMarking.AdaptiveRefPicMarkingModeFlag:
			d.dpb.PerformMMCO(sh.MMCOs(), picture)
			if d.dpb.HadInvalidMMCOReference() {
				d.lastErr = ErrInvalidReference
			}
		default:
			d.slidingWindowMarking(picture)
		}
	}

	d.prevRefFrameNum = picture.FrameNum
	if picture.MemMgmt5 {
		d.pocCalc.SetPrevMemMgmt5(picture.TopFieldOrderCnt, picture.Field == dpb.FieldBottom)
	}

	d.dpb.DeleteUnused()

	if picture.SecondField && picture.OtherField != nil && picture.OtherField.SystemFrameNumber != picture.SystemFrameNumber {
		delete(d.frames, picture.OtherField.SystemFrameNumber)
	}

	if picture.MemMgmt5 {
		d.drainInternal()
	}

	bumpLvl := d.cfg.bumpLevel(d.activeSPS.Profile)
	for d.dpb.NeedsBump(picture, bumpLvl) {
		p := d.dpb.Bump(false)
		if p == nil {
			break
		}
		d.doOutputPicture(p)
	}

	insert := picture.SecondField || picture.RefIsReference() || d.dpb.HasEmptyFrameBuffer()
	if insert {
		d.dpb.Add(picture)
	} else {
		d.outputOrHoldField(picture)
	}

	if bumpLvl == dpb.LowLatency || bumpLvl == dpb.VeryLowLatency {
		for d.dpb.NeedsBump(nil, bumpLvl) {
			d.bumpOne()
		}
	}
}

// outputOrHoldField handles direct output of a non-reference picture that
// the Dpb has no room for: a field picture pairs with any pending
// last_field, or is itself held as the new last_field; a frame picture
// outputs immediately.
func (d *Driver) outputOrHoldField(picture *dpb.Picture) {
	if !picture.FieldPic {
		d.doOutputPicture(picture)
		return
	}

	if d.lastField != nil && d.lastField.FrameNum == picture.FrameNum && d.lastField.Field != picture.Field {
		dpb.Pair(d.lastField, picture)
		first := d.lastField
		first.Interlaced = true
		topPOC, botPOC := first.PicOrderCnt, picture.PicOrderCnt
		if first.Field == dpb.FieldBottom {
			topPOC, botPOC = picture.PicOrderCnt, first.PicOrderCnt
		}
		first.TopFieldFirst = topPOC <= botPOC
		d.lastField = nil
		d.lastFieldFrame = nil
		d.doOutputPicture(first)
		return
	}

	d.logf("decoder: direct-output field had no pending partner; holding as last_field")
	d.lastField = picture
	d.lastFieldFrame = d.frames[picture.SystemFrameNumber]
}

// bumpOne bumps a single picture from the Dpb and routes it to output.
func (d *Driver) bumpOne() {
	p := d.dpb.Bump(false)
	if p == nil {
		return
	}
	d.doOutputPicture(p)
}

// doOutputPicture attaches picture to its routing frame, pushes it onto the
// OutputQueue, and drains the queue down to the current preferred delay.
func (d *Driver) doOutputPicture(picture *dpb.Picture) Status {
	frame := d.frames[picture.SystemFrameNumber]
	delete(d.frames, picture.SystemFrameNumber)

	if d.haveOutputSinceSeqStart && picture.ReorderFrameNumber < d.lastReorderFrameNumber {
		d.logf("decoder: picture order went backwards", "reorder_frame_number", picture.ReorderFrameNumber)
	}

	dist := d.lastReorderFrameNumber - picture.ReorderFrameNumber
	if dist > d.maxReorderObserved {
		d.maxReorderObserved = dist
		d.recomputeLatency()
	}
	d.lastReorderFrameNumber = picture.ReorderFrameNumber
	d.haveOutputSinceSeqStart = true

	d.outQueue.Push(frame, picture)
	return d.outQueue.Drain(d.backend, int(d.preferredDelayFor()))
}

func (d *Driver) recomputeLatency() {
	// latency = (max_reorder + preferred_output_delay) * fps_d / fps_n;
	// frame-rate scaling is a back-end/upstream concern this core does not
	// track, so the unscaled reorder-plus-delay count is exposed and the
	// embedding element applies its own fps_d/fps_n.
	d.latency = uint32(d.maxReorderObserved) + d.preferredDelayFor()
}

// Latency returns the current recomputed pipeline latency hint (in frame
// units; the embedding element applies fps_d/fps_n scaling).
func (d *Driver) Latency() uint32 { return d.latency }

func (d *Driver) resetLatency() {
	d.maxReorderObserved = 0
	d.lastReorderFrameNumber = 0
	d.haveOutputSinceSeqStart = false
	d.latency = 0
}

func (d *Driver) preferredDelayFor() uint32 {
	db, ok := d.backend.(DelayBackend)
	if !ok {
		return 0
	}
	return db.GetPreferredOutputDelay(d.cfg.Live)
}

// drainInternal bumps every remaining picture out of the Dpb and flushes
// the OutputQueue fully, per the Drain operation of section 4.5.
func (d *Driver) drainInternal() Status {
	status := StatusOK
	if d.dpb != nil {
		for {
			p := d.dpb.Bump(true)
			if p == nil {
				break
			}
			if s := d.doOutputPicture(p); s != StatusOK {
				status = s
			}
		}
	}
	if s := d.outQueue.Flush(d.backend); s != StatusOK {
		status = s
	}
	d.lastField = nil
	d.lastFieldFrame = nil
	return status
}

// clearDpbNoOutput discards every buffered picture without delivering it to
// the back end (the IDR no_output_of_prior_pics_flag == 1 case).
func (d *Driver) clearDpbNoOutput() {
	for _, p := range d.dpb.Pictures() {
		p.Release()
		delete(d.frames, p.SystemFrameNumber)
	}
	d.resizeDpb()
	d.outQueue.Clear()
	d.lastField = nil
	d.lastFieldFrame = nil
}

func (d *Driver) resizeDpb() {
	d.dpb = dpb.New(d.log)
	d.dpb.SetMaxNumFrames(d.sizing.MaxDpbSize)
	d.dpb.SetMaxNumReorderFrames(d.sizing.MaxNumReorderFrames)
	d.dpb.SetInterlaced(d.activeSPS != nil && !d.activeSPS.FrameMBSOnlyFlag)
}

// Flush discards all Driver state without delivering any buffered picture,
// for an upstream flush event. Destruction does not imply drain; callers
// that want residual pictures delivered must call Drain first.
func (d *Driver) Flush() {
	for _, p := range d.dpb.Pictures() {
		p.Release()
	}
	d.outQueue.Clear()
	d.resizeDpb()
	d.frames = make(map[uint32]*Frame)
	d.currentPicture = nil
	d.currentSlice = nil
	d.currentFrame = nil
	d.lastField = nil
	d.lastFieldFrame = nil
}

// Drain finishes any pending current picture, then drains the Dpb and the
// OutputQueue, delivering every buffered picture to the back end.
func (d *Driver) Drain() Status {
	status := StatusOK
	if d.currentPicture != nil {
		if s := d.finishCurrentPicture(); s != StatusOK {
			status = s
		}
	}
	if s := d.drainInternal(); s != StatusOK {
		status = s
	}
	return status
}
