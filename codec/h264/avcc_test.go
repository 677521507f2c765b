/*
NAME
  avcc_test.go

DESCRIPTION
  avcc_test.go provides tests for the avcC record parsing and NAL unit
  splitting utilities in avcc.go.

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
	"reflect"
	"testing"
)

func TestNewDecoderConfigRecord(t *testing.T) {
	sps := []byte{0x67, 0x42, 0x00, 0x0a}
	pps := []byte{0x68, 0xce, 0x38, 0x80}

	b := []byte{
		1,          // configurationVersion
		0x42,       // AVCProfileIndication
		0x00,       // profile_compatibility
		0x0a,       // AVCLevelIndication
		0xff,       // reserved(6) + lengthSizeMinusOne(2) = 3 -> NALULengthSize 4
		0xe1,       // reserved(3) + numOfSequenceParameterSets(5) = 1
		0x00, 0x04, // SPS length
	}
	b = append(b, sps...)
	b = append(b, 0x01) // numOfPictureParameterSets = 1
	b = append(b, 0x00, 0x04)
	b = append(b, pps...)

	got, err := NewDecoderConfigRecord(b)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	want := &DecoderConfigRecord{
		ConfigurationVersion: 1,
		Profile:              0x42,
		ProfileCompatibility: 0x00,
		Level:                0x0a,
		NALULengthSize:       4,
		SPS:                  [][]byte{sps},
		PPS:                  [][]byte{pps},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("did not get expected result\nGot: %+v\nWant: %+v\n", got, want)
	}
}

func TestNewDecoderConfigRecordShort(t *testing.T) {
	_, err := NewDecoderConfigRecord([]byte{1, 2, 3})
	if err != ErrShortRecord {
		t.Errorf("got error %v, want ErrShortRecord", err)
	}
}

func TestNewDecoderConfigRecordBadVersion(t *testing.T) {
	b := []byte{2, 0x42, 0x00, 0x0a, 0xff, 0xe0, 0x00}
	_, err := NewDecoderConfigRecord(b)
	if err != ErrBadVersion {
		t.Errorf("got error %v, want ErrBadVersion", err)
	}
}

func TestSplitAVCC(t *testing.T) {
	nalu1 := []byte{0x67, 0x42, 0x00, 0x0a}
	nalu2 := []byte{0x68, 0xce, 0x38, 0x80}

	var buf []byte
	for _, n := range [][]byte{nalu1, nalu2} {
		buf = append(buf, 0x00, 0x00, 0x00, byte(len(n)))
		buf = append(buf, n...)
	}

	got, err := SplitAVCC(buf, 4)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	want := [][]byte{nalu1, nalu2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("did not get expected result\nGot: %v\nWant: %v\n", got, want)
	}
}

func TestSplitAVCCTruncated(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0x04, 0x67, 0x42} // length says 4, only 2 bytes follow
	_, err := SplitAVCC(buf, 4)
	if err == nil {
		t.Fatal("expected error for truncated avcc buffer, got nil")
	}
}
