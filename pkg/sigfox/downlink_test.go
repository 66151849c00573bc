package sigfox

import "testing"

func downlinkCommon() CommonInfo {
	return CommonInfo{Seqnum: 42, Devid: 0xCAFEBABE, Key: testKey()}
}

func TestDownlinkRoundTrip(t *testing.T) {
	common := downlinkCommon()
	plain := DownlinkPlain{Payload: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}

	encoded, err := EncodeDownlink(plain, common, nil)
	if err != nil {
		t.Fatalf("EncodeDownlink: %v", err)
	}

	got, err := DecodeDownlink(encoded, common, nil)
	if err != nil {
		t.Fatalf("DecodeDownlink: %v", err)
	}
	if !got.CRCOk || !got.MACOk {
		t.Fatalf("expected CRC and MAC to check out: %+v", got)
	}
	if got.FECCorrected {
		t.Fatalf("FECCorrected should be false on a clean frame")
	}
	if got.Payload != plain.Payload {
		t.Fatalf("got payload %v, want %v", got.Payload, plain.Payload)
	}
}

func TestDownlinkFECCorrectsSingleByteCorruption(t *testing.T) {
	common := downlinkCommon()
	plain := DownlinkPlain{Payload: [8]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22}}

	encoded, err := EncodeDownlink(plain, common, nil)
	if err != nil {
		t.Fatalf("EncodeDownlink: %v", err)
	}

	// Corrupt a single byte of the descrambled frame by reaching through
	// the scrambler: apply it, flip a byte, apply it again.
	s := NewLFSRScrambler()
	raw := encoded.Frame
	if err := s.Scramble(common.Devid, common.Seqnum, raw[:]); err != nil {
		t.Fatalf("Scramble: %v", err)
	}
	raw[2] ^= 0x20
	if err := s.Scramble(common.Devid, common.Seqnum, raw[:]); err != nil {
		t.Fatalf("Scramble: %v", err)
	}
	encoded.Frame = raw

	got, err := DecodeDownlink(encoded, common, nil)
	if err != nil {
		t.Fatalf("DecodeDownlink: %v", err)
	}
	if !got.FECCorrected {
		t.Fatalf("expected FEC to flag a correction")
	}
	if !got.CRCOk || !got.MACOk {
		t.Fatalf("expected CRC/MAC to pass after FEC correction: %+v", got)
	}
	if got.Payload != plain.Payload {
		t.Fatalf("got payload %v, want %v", got.Payload, plain.Payload)
	}
}

func TestDownlinkWrongKeyFailsMAC(t *testing.T) {
	common := downlinkCommon()
	plain := DownlinkPlain{Payload: [8]byte{1, 1, 2, 3, 5, 8, 13, 21}}

	encoded, err := EncodeDownlink(plain, common, nil)
	if err != nil {
		t.Fatalf("EncodeDownlink: %v", err)
	}

	wrong := common
	wrong.Key[0] ^= 0xFF

	got, err := DecodeDownlink(encoded, wrong, nil)
	if err != nil {
		t.Fatalf("DecodeDownlink: %v", err)
	}
	if got.MACOk {
		t.Fatalf("expected MAC check to fail with the wrong key")
	}
}

func TestDownlinkDisabledScramblerReturnsError(t *testing.T) {
	common := downlinkCommon()
	plain := DownlinkPlain{Payload: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}

	_, err := EncodeDownlink(plain, common, DisabledScrambler{})
	if err != ErrScramblerUnavailable {
		t.Fatalf("got %v, want ErrScramblerUnavailable", err)
	}
}

func TestBruteForceSeqnumFindsCorrectSeqnum(t *testing.T) {
	devid := uint32(0x11223344)
	key := testKey()
	realSeqnum := uint16(7)
	common := CommonInfo{Seqnum: realSeqnum, Devid: devid, Key: key}
	plain := DownlinkPlain{Payload: [8]byte{9, 8, 7, 6, 5, 4, 3, 2}}

	encoded, err := EncodeDownlink(plain, common, nil)
	if err != nil {
		t.Fatalf("EncodeDownlink: %v", err)
	}

	got, foundSeqnum, err := BruteForceSeqnum(encoded, devid, key, 20, nil)
	if err != nil {
		t.Fatalf("BruteForceSeqnum: %v", err)
	}
	if foundSeqnum != realSeqnum {
		t.Fatalf("got seqnum %d, want %d", foundSeqnum, realSeqnum)
	}
	if got.Payload != plain.Payload {
		t.Fatalf("got payload %v, want %v", got.Payload, plain.Payload)
	}
}

// TestScenario5DownlinkEncodeDecode ports spec.md §8 scenario 5
// verbatim: devid 0xDEADBEEF, seqnum 0x001, key all-zero, payload
// 00 11 22 33 44 55 66 77.
func TestScenario5DownlinkEncodeDecode(t *testing.T) {
	common := CommonInfo{Devid: 0xDEADBEEF, Seqnum: 0x001, Key: Key{}}
	plain := DownlinkPlain{Payload: [8]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}}

	encoded, err := EncodeDownlink(plain, common, nil)
	if err != nil {
		t.Fatalf("EncodeDownlink: %v", err)
	}

	got, err := DecodeDownlink(encoded, common, nil)
	if err != nil {
		t.Fatalf("DecodeDownlink: %v", err)
	}
	if !got.CRCOk || !got.MACOk {
		t.Fatalf("expected CRC and MAC to check out: %+v", got)
	}
	if got.Payload != plain.Payload {
		t.Fatalf("got payload %v, want %v", got.Payload, plain.Payload)
	}
}

// TestScenario6DownlinkBruteForceSeqnum ports spec.md §8 scenario 6:
// given scenario 5's frame and the correct devid+key, sweeping seqnum
// upward from 0 finds 0x001 as the first seqnum satisfying both CRC and
// MAC.
func TestScenario6DownlinkBruteForceSeqnum(t *testing.T) {
	common := CommonInfo{Devid: 0xDEADBEEF, Seqnum: 0x001, Key: Key{}}
	plain := DownlinkPlain{Payload: [8]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}}

	encoded, err := EncodeDownlink(plain, common, nil)
	if err != nil {
		t.Fatalf("EncodeDownlink: %v", err)
	}

	got, foundSeqnum, err := BruteForceSeqnum(encoded, common.Devid, common.Key, 0xFFF, nil)
	if err != nil {
		t.Fatalf("BruteForceSeqnum: %v", err)
	}
	if foundSeqnum != 0x001 {
		t.Fatalf("got seqnum %#x, want 0x001", foundSeqnum)
	}
	if got.Payload != plain.Payload {
		t.Fatalf("got payload %v, want %v", got.Payload, plain.Payload)
	}
}

func TestBruteForceSeqnumExhaustsRange(t *testing.T) {
	devid := uint32(1)
	key := testKey()
	common := CommonInfo{Seqnum: 999, Devid: devid, Key: key}
	plain := DownlinkPlain{Payload: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}

	encoded, err := EncodeDownlink(plain, common, nil)
	if err != nil {
		t.Fatalf("EncodeDownlink: %v", err)
	}

	_, _, err = BruteForceSeqnum(encoded, devid, key, 5, nil)
	if err == nil {
		t.Fatalf("expected BruteForceSeqnum to fail when the real seqnum is outside the searched range")
	}
}
