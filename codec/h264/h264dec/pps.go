package h264dec

import (
	"github.com/ausocean/h264decoder/codec/h264/h264dec/bits"
	"github.com/pkg/errors"
)

// ErrFMOUnsupported is returned by NewPPS when a picture parameter set
// enables flexible macroblock ordering / arbitrary slice ordering
// (num_slice_groups_minus1 > 0). FMO/ASO are an explicit Non-goal.
var ErrFMOUnsupported = errors.New("h264dec: FMO (num_slice_groups_minus1 > 0) is not supported")

// PPS describes a picture parameter set as defined by section 7.3.2.2 in
// the specifications.
type PPS struct {
	ID, SPSID                         int
	EntropyCodingMode                 int
	BottomFieldPicOrderInFramePresent bool
	// NumSliceGroupsMinus1 is always 0: NewPPS rejects any picture parameter
	// set with num_slice_groups_minus1 > 0 (FMO/ASO is out of scope), so the
	// slice_group_map_type and related syntax are never present or parsed.
	NumSliceGroupsMinus1           int
	NumRefIdxL0DefaultActiveMinus1 int
	NumRefIdxL1DefaultActiveMinus1 int
	WeightedPred                   bool
	WeightedBipred                 int
	PicInitQpMinus26               int
	PicInitQsMinus26               int
	ChromaQpIndexOffset            int
	DeblockingFilterControlPresent bool
	ConstrainedIntraPred           bool
	RedundantPicCntPresent         bool
	Transform8x8Mode               int
	PicScalingMatrixPresent        bool
	PicScalingListPresent          []bool
	SecondChromaQpIndexOffset      int
}

// NewPPS parses a picture parameter set raw byte sequence from br following
// the syntax structure specified in section 7.3.2.2, and returns as a new
// PPS. A PPS enabling FMO/ASO (num_slice_groups_minus1 > 0) is rejected with
// ErrFMOUnsupported, since the slice group map syntax it gates is outside
// this module's scope.
func NewPPS(br *bits.BitReader, chromaFormat int) (*PPS, error) {
	pps := PPS{}
	r := newFieldReader(br)

	pps.ID = int(r.readUe())
	pps.SPSID = int(r.readUe())
	pps.EntropyCodingMode = int(r.readBits(1))
	pps.BottomFieldPicOrderInFramePresent = r.readBits(1) == 1
	pps.NumSliceGroupsMinus1 = int(r.readUe())

	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not parse picture parameter set")
	}
	if pps.NumSliceGroupsMinus1 > 0 {
		return nil, ErrFMOUnsupported
	}

	pps.NumRefIdxL0DefaultActiveMinus1 = int(r.readUe())
	pps.NumRefIdxL1DefaultActiveMinus1 = int(r.readUe())
	pps.WeightedPred = r.readBits(1) == 1
	pps.WeightedBipred = int(r.readBits(2))
	pps.PicInitQpMinus26 = int(r.readSe())
	pps.PicInitQsMinus26 = int(r.readSe())
	pps.ChromaQpIndexOffset = int(r.readSe())
	pps.DeblockingFilterControlPresent = r.readBits(1) == 1
	pps.ConstrainedIntraPred = r.readBits(1) == 1
	pps.RedundantPicCntPresent = r.readBits(1) == 1

	if moreRBSPData(br) {
		pps.Transform8x8Mode = int(r.readBits(1))
		pps.PicScalingMatrixPresent = r.readBits(1) == 1

		if pps.PicScalingMatrixPresent {
			v := 6
			if chromaFormat != chroma444 {
				v = 2
			}
			pps.PicScalingListPresent = make([]bool, 6+(v*pps.Transform8x8Mode))
			for i := range pps.PicScalingListPresent {
				pps.PicScalingListPresent[i] = r.readBits(1) == 1
				if pps.PicScalingListPresent[i] {
					if i < 6 {
						scalingList(
							br,
							ScalingList4x4[i],
							16,
							DefaultScalingMatrix4x4[i])

					} else {
						scalingList(
							br,
							ScalingList8x8[i],
							64,
							DefaultScalingMatrix8x8[i-6])

					}
				}
			}
		}
		pps.SecondChromaQpIndexOffset = r.readSe()
		// rbsp_trailing_bits() follows; this module never reads past the
		// header, so no further bits are consumed here.
	}

	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not parse picture parameter set")
	}
	return &pps, nil
}
