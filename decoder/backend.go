/*
DESCRIPTION
  backend.go defines the polymorphic back-end interface the Driver drives:
  a mandatory capability set plus optional slots for field-picture support
  and preferred output delay, queried by type assertion rather than
  inheritance.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package decoder

import (
	"github.com/ausocean/h264decoder/codec/h264/h264dec"
	"github.com/ausocean/h264decoder/dpb"
)

// Status is the flow-status result of a Driver operation or a back-end call.
type Status int

const (
	StatusOK Status = iota
	StatusError
	StatusNotNegotiated
	StatusFlushing
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotNegotiated:
		return "not negotiated"
	case StatusFlushing:
		return "flushing"
	default:
		return "error"
	}
}

// Frame is the upstream routing handle a picture's output is delivered
// through. The Driver never interprets its contents; it only correlates a
// picture back to the frame it arrived with by SystemFrameNumber.
type Frame struct {
	SystemFrameNumber uint32
	UserData          interface{}
}

// Backend is the mandatory set of operations a back end must implement, per
// the EXTERNAL INTERFACES back-end table.
type Backend interface {
	// NewSequence is called for every SPS the Driver accepts; when the SPS
	// differs materially from the active one, the Dpb is drained first.
	NewSequence(sps *h264dec.SPS, maxDpbSize int) Status

	// NewPicture gives the back end a chance to allocate output storage for
	// a fresh, non-paired picture.
	NewPicture(frame *Frame, picture *dpb.Picture) Status

	// StartPicture is called once per picture, with its first slice and a
	// read-only view of the Dpb at that point.
	StartPicture(picture *dpb.Picture, slice *h264dec.SliceHeader, d *dpb.Dpb) Status

	// DecodeSlice is called once per slice of the current picture. list1 is
	// empty for non-B slices.
	DecodeSlice(picture *dpb.Picture, slice *h264dec.SliceHeader, list0, list1 []*dpb.Picture) Status

	// EndPicture is called once the picture's last slice has been decoded.
	EndPicture(picture *dpb.Picture) Status

	// OutputPicture delivers a picture, combined with its routing frame, to
	// the consumer. It consumes both.
	OutputPicture(frame *Frame, picture *dpb.Picture) Status
}

// FieldPictureBackend is implemented by back ends that support field-coded
// pictures. A back end that does not implement it causes an interlaced SPS
// to negotiate StatusNotNegotiated.
type FieldPictureBackend interface {
	NewFieldPicture(first, second *dpb.Picture) Status
}

// DelayBackend is implemented by back ends with a preferred output delay
// beyond the Dpb's own reordering requirement, e.g. to smooth hardware
// pipeline latency.
type DelayBackend interface {
	GetPreferredOutputDelay(live bool) uint32
}
