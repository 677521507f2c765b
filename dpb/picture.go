/*
DESCRIPTION
  picture.go defines Picture, the per-picture record shared by the Dpb, the
  reference-list builder, the output queue and the Driver. Pictures are
  owned by whichever of those holders currently needs them; the Driver, the
  Dpb and the PocCalculator write their fields.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package dpb

import "github.com/ausocean/h264decoder/codec/h264/h264dec"

// RefState is a picture's reference status.
type RefState int

const (
	RefNone RefState = iota
	RefShortTerm
	RefLongTerm
)

func (s RefState) String() string {
	switch s {
	case RefShortTerm:
		return "short-term"
	case RefLongTerm:
		return "long-term"
	default:
		return "none"
	}
}

// Field names a picture's field structure.
type Field int

const (
	FieldFrame Field = iota
	FieldTop
	FieldBottom
)

func (f Field) String() string {
	switch f {
	case FieldTop:
		return "top"
	case FieldBottom:
		return "bottom"
	default:
		return "frame"
	}
}

// Opposite returns the other field of a complementary pair. It panics if f
// is FieldFrame, since a frame picture has no opposite field.
func (f Field) Opposite() Field {
	switch f {
	case FieldTop:
		return FieldBottom
	case FieldBottom:
		return FieldTop
	default:
		panic("dpb: Field.Opposite called on FieldFrame")
	}
}

// UnsetPOC is the sentinel value a Picture's top/bottom field order count
// fields hold until the PocCalculator assigns a real value.
const UnsetPOC = 1<<31 - 1

// Picture is the per-picture record described by section 3 of the decoder's
// data model: identity, POC inputs and outputs, frame numbering, reference
// status, field linkage and an opaque back-end payload.
type Picture struct {
	// Identity.
	SystemFrameNumber  uint32
	ReorderFrameNumber int64

	// Slice-type category copied from the first slice of the picture.
	SliceType int

	// POC inputs, copied verbatim from the slice header.
	PicOrderCntType        uint64
	PicOrderCntLsb         int
	DeltaPicOrderCntBottom int
	DeltaPicOrderCnt       [2]int

	// Computed POC fields.
	TopFieldOrderCnt    int
	BottomFieldOrderCnt int
	PicOrderCnt         int
	PicOrderCntMsb      int

	// Frame numbering.
	FrameNum         int
	FrameNumOffset   int
	FrameNumWrap     int
	PicNum           int
	LongTermPicNum   int
	LongTermFrameIdx int

	// NAL attributes.
	NalRefIdc int
	IDR       bool
	IdrPicID  int
	FieldPic  bool

	// Reference status. RefPic latches true the first time Ref becomes
	// non-None and never clears.
	Ref    RefState
	RefPic bool

	// Output state.
	NeededForOutput bool
	Nonexisting     bool
	MemMgmt5        bool

	// Discontinuity, carried from the Driver's input-state tracking
	// (section 5 of SPEC_FULL.md); back ends use it to reset prediction
	// state across a resolution change.
	Discont bool

	// Field linkage.
	Field       Field
	SecondField bool
	OtherField  *Picture

	// Reference-picture marking, copied from the slice header when
	// nal_ref_idc != 0.
	DecRefPicMarking *h264dec.DecRefPicMarking

	// Back-end payload.
	UserData  interface{}
	OnRelease func(interface{})

	// Buffer flags carried through to output.
	Interlaced    bool
	TopFieldFirst bool
}

// NewPicture returns a blank Picture: field = Frame, POC fields unset,
// needed_for_output = false, ref = None.
func NewPicture() *Picture {
	return &Picture{
		Field:               FieldFrame,
		TopFieldOrderCnt:    UnsetPOC,
		BottomFieldOrderCnt: UnsetPOC,
	}
}

// SetReference sets the picture's reference status. When applyToOther is
// true and the picture has a paired field, the other field's status is
// updated identically. Setting a non-None status latches RefPic; it is
// never cleared by a later transition back to RefNone.
func (p *Picture) SetReference(ref RefState, applyToOther bool) {
	p.Ref = ref
	if ref != RefNone {
		p.RefPic = true
	}
	if applyToOther && p.OtherField != nil {
		p.OtherField.Ref = ref
		if ref != RefNone {
			p.OtherField.RefPic = true
		}
	}
}

// Release invokes the back end's release hook, if any, with the picture's
// user data, and clears it so the hook cannot fire twice.
func (p *Picture) Release() {
	if p.OnRelease != nil && p.UserData != nil {
		p.OnRelease(p.UserData)
	}
	p.UserData = nil
	p.OnRelease = nil
}

// Complementary reports whether p and other form a complementary reference
// field pair: opposite parities and equal frame_num. Whether either picture
// is already paired with another is not checked.
func (p *Picture) Complementary(other *Picture) bool {
	return p.Field != FieldFrame && other.Field != FieldFrame &&
		p.Field != other.Field && p.FrameNum == other.FrameNum
}

// Pair links p and other as a complementary field pair symmetrically.
func Pair(first, second *Picture) {
	first.OtherField = second
	second.OtherField = first
	second.SecondField = true
}
