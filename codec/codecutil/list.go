/*
NAME
  list.go

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved. 

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package codecutil

// Packaging names the three NAL unit delivery formats an upstream element may
// declare, per ISO/IEC 14496-15 and the H.264 byte-stream format (Annex B).
const (
	H264      = "h264"      // Start-code-delimited byte stream (requires lexing).
	H264_AU   = "h264_au"   // Discrete, already-demuxed access units.
	H264_AVCC = "h264_avcc" // Length-prefixed units described by an avcC record.
)

// IsValid checks if a string is a known and valid packaging in the right format.
func IsValid(s string) bool {
	switch s {
	case H264, H264_AU, H264_AVCC:
		return true
	default:
		return false
	}
}
