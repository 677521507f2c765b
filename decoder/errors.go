/*
DESCRIPTION
  errors.go names the error taxonomy of section 7: error kinds the Driver
  reports to its caller, distinct from the flow-status values it exchanges
  with the back end.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package decoder

import "github.com/pkg/errors"

var (
	// ErrUnsupportedStream means the SPS requests features the back end did
	// not opt into (interlaced without a field-picture back end);
	// negotiation fails permanently until a new SPS arrives.
	ErrUnsupportedStream = errors.New("decoder: unsupported stream")

	// ErrInvalidReference means an MMCO or list-modification command
	// referenced a pic_num / long_term_pic_num with no matching picture.
	// Logged and skipped; decoding continues.
	ErrInvalidReference = errors.New("decoder: invalid reference")

	// ErrStreamInconsistency means a logical check failed: a second field
	// arrived for a frame_num with the same parity as the pending field
	// rather than its complement, or POC derivation itself failed. The
	// current picture is discarded.
	ErrStreamInconsistency = errors.New("decoder: stream inconsistency")

	// ErrNoActiveSPS means a slice arrived before any SPS.
	ErrNoActiveSPS = errors.New("decoder: no active sequence parameter set")

	// ErrUnknownPPS means a slice referenced a pic_parameter_set_id with no
	// matching stored PPS.
	ErrUnknownPPS = errors.New("decoder: slice references an unknown picture parameter set")
)
