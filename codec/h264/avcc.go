/*
NAME
  avcc.go

DESCRIPTION
  avcc.go provides parsing of an ISO/IEC 14496-15 AVCDecoderConfigurationRecord
  (the `avcC` box) and extraction of length-prefixed NAL units packaged
  according to it. This complements lex.go's start-code byte-stream lexer:
  presence of an avcC record implies AVC packaging (alignment "au"), its
  absence implies byte-stream packaging.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Errors returned by NewDecoderConfigRecord and SplitAVCC.
var (
	ErrShortRecord     = errors.New("h264: avcC record too short")
	ErrBadVersion      = errors.New("h264: avcC record has unexpected version")
	ErrShortNALULength = errors.New("h264: avcC record truncated while reading a parameter set")
	ErrShortAVCCUnit   = errors.New("h264: avcc buffer truncated while reading a NAL unit length or body")
)

// DecoderConfigRecord describes the fixed-header fields and parameter sets of
// an AVCDecoderConfigurationRecord, as defined in section 5.2.4.1.1 of
// ISO/IEC 14496-15. NewDecoderConfigRecord parses one from an `avcC` box
// payload (the box header is not included).
type DecoderConfigRecord struct {
	ConfigurationVersion uint8
	Profile              uint8
	ProfileCompatibility uint8
	Level                uint8

	// NALULengthSize is the number of bytes (1, 2 or 4) used to prefix each
	// NAL unit's length in the accompanying AVC sample data.
	NALULengthSize int

	SPS [][]byte
	PPS [][]byte
}

// NewDecoderConfigRecord parses an AVCDecoderConfigurationRecord from b,
// following the syntax described in section 5.2.4.1.1 of ISO/IEC 14496-15.
func NewDecoderConfigRecord(b []byte) (*DecoderConfigRecord, error) {
	if len(b) < 7 {
		return nil, ErrShortRecord
	}

	r := &DecoderConfigRecord{
		ConfigurationVersion: b[0],
		Profile:              b[1],
		ProfileCompatibility: b[2],
		Level:                b[3],
		NALULengthSize:       int(b[4]&0x3) + 1,
	}
	if r.ConfigurationVersion != 1 {
		return nil, ErrBadVersion
	}

	numSPS := int(b[5] & 0x1f)
	off := 6
	for i := 0; i < numSPS; i++ {
		ps, n, err := readLengthPrefixed(b, off, 2)
		if err != nil {
			return nil, err
		}
		r.SPS = append(r.SPS, ps)
		off += n
	}

	if off >= len(b) {
		return nil, ErrShortRecord
	}
	numPPS := int(b[off])
	off++
	for i := 0; i < numPPS; i++ {
		ps, n, err := readLengthPrefixed(b, off, 2)
		if err != nil {
			return nil, err
		}
		r.PPS = append(r.PPS, ps)
		off += n
	}

	return r, nil
}

// readLengthPrefixed reads a lengthSize-byte big-endian length followed by
// that many bytes of payload from b starting at off, and returns the payload
// and the total number of bytes consumed.
func readLengthPrefixed(b []byte, off, lengthSize int) ([]byte, int, error) {
	if off+lengthSize > len(b) {
		return nil, 0, ErrShortNALULength
	}
	var length int
	switch lengthSize {
	case 2:
		length = int(binary.BigEndian.Uint16(b[off:]))
	case 4:
		length = int(binary.BigEndian.Uint32(b[off:]))
	default:
		length = int(b[off])
	}
	start := off + lengthSize
	end := start + length
	if end > len(b) {
		return nil, 0, ErrShortNALULength
	}
	return b[start:end], end - off, nil
}

// SplitAVCC splits buf, an access unit packaged as a sequence of
// nalLengthSize-byte length-prefixed NAL units (the sample format that
// accompanies an avcC record), into its constituent NAL unit byte slices.
// nalLengthSize is normally DecoderConfigRecord.NALULengthSize.
func SplitAVCC(buf []byte, nalLengthSize int) ([][]byte, error) {
	var nalus [][]byte
	off := 0
	for off < len(buf) {
		nalu, n, err := readLengthPrefixed(buf, off, nalLengthSize)
		if err != nil {
			return nil, errors.Wrap(ErrShortAVCCUnit, err.Error())
		}
		nalus = append(nalus, nalu)
		off += n
	}
	return nalus, nil
}
