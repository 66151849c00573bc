package sigfox

import "testing"

func uplinkCommon() CommonInfo {
	return CommonInfo{Seqnum: 123, Devid: 0xDEADBEEF, Key: testKey()}
}

func TestUplinkRoundTripAllLengths(t *testing.T) {
	common := uplinkCommon()

	for payloadlen := uint8(1); payloadlen <= 12; payloadlen++ {
		plain := UplinkPlain{PayloadLen: payloadlen}
		for i := uint8(0); i < payloadlen; i++ {
			plain.Payload[i] = byte(i + 1)
		}

		encoded, err := EncodeUplink(plain, common)
		if err != nil {
			t.Fatalf("payloadlen %d: EncodeUplink: %v", payloadlen, err)
		}

		got, gotCommon, err := DecodeUplink(encoded, common.Key, true)
		if err != nil {
			t.Fatalf("payloadlen %d: DecodeUplink: %v", payloadlen, err)
		}
		if got.PayloadLen != payloadlen {
			t.Fatalf("payloadlen %d: decoded PayloadLen = %d", payloadlen, got.PayloadLen)
		}
		for i := uint8(0); i < payloadlen; i++ {
			if got.Payload[i] != plain.Payload[i] {
				t.Fatalf("payloadlen %d: payload byte %d mismatch", payloadlen, i)
			}
		}
		if gotCommon.Seqnum != common.Seqnum || gotCommon.Devid != common.Devid {
			t.Fatalf("payloadlen %d: common info mismatch: %+v", payloadlen, gotCommon)
		}
	}
}

func TestUplinkRoundTripSinglebit(t *testing.T) {
	common := uplinkCommon()

	for _, bit := range []byte{0x00, 0x10} {
		plain := UplinkPlain{Singlebit: true}
		plain.Payload[0] = bit

		encoded, err := EncodeUplink(plain, common)
		if err != nil {
			t.Fatalf("EncodeUplink: %v", err)
		}

		got, _, err := DecodeUplink(encoded, common.Key, true)
		if err != nil {
			t.Fatalf("DecodeUplink: %v", err)
		}
		if !got.Singlebit || got.Payload[0] != bit {
			t.Fatalf("got %+v, want singlebit=%#x", got, bit)
		}
	}
}

func TestUplinkEncodedFramelenMatchesTable(t *testing.T) {
	common := uplinkCommon()
	cases := []struct {
		singlebit  bool
		payloadlen uint8
		want       int
	}{
		{singlebit: true, payloadlen: 0, want: 13},
		{payloadlen: 1, want: 14},
		{payloadlen: 4, want: 17},
		{payloadlen: 8, want: 21},
		{payloadlen: 12, want: 25},
	}
	for _, c := range cases {
		plain := UplinkPlain{Singlebit: c.singlebit, PayloadLen: c.payloadlen}
		encoded, err := EncodeUplink(plain, common)
		if err != nil {
			t.Fatalf("EncodeUplink: %v", err)
		}
		if len(encoded.Frame[0]) != c.want {
			t.Fatalf("payloadlen %d: frame length = %d, want %d", c.payloadlen, len(encoded.Frame[0]), c.want)
		}
	}
}

func TestUplinkFramelenNibblesAlwaysOdd(t *testing.T) {
	common := uplinkCommon()
	plain := UplinkPlain{PayloadLen: 5}
	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}
	if encoded.FramelenNibbles%2 == 0 {
		t.Fatalf("FramelenNibbles = %d, want odd", encoded.FramelenNibbles)
	}
}

func TestUplinkDecodeRejectsEvenFramelenNibbles(t *testing.T) {
	common := uplinkCommon()
	plain := UplinkPlain{PayloadLen: 5}
	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}
	encoded.FramelenNibbles++ // force even

	_, _, err = DecodeUplink(encoded, common.Key, true)
	if err != ErrFramelenEven {
		t.Fatalf("got %v, want ErrFramelenEven", err)
	}
}

func TestUplinkDecodeDetectsFtypeMismatch(t *testing.T) {
	common := uplinkCommon()
	plain := UplinkPlain{PayloadLen: 5}
	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}

	frame := encoded.Frame[0]
	if err := SetBits(frame, ulFtypeBitOffset, uint32(ftypeSinglebit), 3); err != nil {
		t.Fatalf("SetBits: %v", err)
	}

	_, _, err = DecodeUplink(encoded, common.Key, true)
	if err != ErrFtypeMismatch {
		t.Fatalf("got %v, want ErrFtypeMismatch", err)
	}
}

func TestUplinkDecodeDetectsCorruptedCRC(t *testing.T) {
	common := uplinkCommon()
	plain := UplinkPlain{PayloadLen: 5}
	for i := range plain.Payload[:5] {
		plain.Payload[i] = byte(i)
	}
	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}

	encoded.Frame[0][7] ^= 0xFF // corrupt a payload byte, CRC will no longer match

	_, _, err = DecodeUplink(encoded, common.Key, true)
	if err != ErrCrcInvalid {
		t.Fatalf("got %v, want ErrCrcInvalid", err)
	}
}

// TestUplinkWrongKeyCRCPassesMACFails exercises spec.md §8 scenario 4: an
// uplink decoded with an incorrect key still passes CRC (computed over
// the plaintext header+payload, independent of the key) but fails MAC.
func TestUplinkWrongKeyCRCPassesMACFails(t *testing.T) {
	common := uplinkCommon()
	plain := UplinkPlain{PayloadLen: 6}
	for i := range plain.Payload[:6] {
		plain.Payload[i] = byte(i + 1)
	}
	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}

	wrongKey := testKey()
	wrongKey[0] ^= 0xFF

	_, _, err = DecodeUplink(encoded, wrongKey, true)
	if err != ErrMacInvalid {
		t.Fatalf("got %v, want ErrMacInvalid (CRC should pass, MAC should fail)", err)
	}
}

func TestUplinkReplicasGenerated(t *testing.T) {
	common := uplinkCommon()
	plain := UplinkPlain{PayloadLen: 3, Replicas: true}
	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}
	if encoded.Frame[1] == nil || encoded.Frame[2] == nil {
		t.Fatalf("replicas not populated: %+v", encoded)
	}
	if len(encoded.Frame[1]) != len(encoded.Frame[0]) || len(encoded.Frame[2]) != len(encoded.Frame[0]) {
		t.Fatalf("replica lengths do not match frame 0")
	}
}

func TestUplinkEncodeRejectsTooLongPayload(t *testing.T) {
	common := uplinkCommon()
	plain := UplinkPlain{PayloadLen: 13}
	_, err := EncodeUplink(plain, common)
	if err != ErrPayloadTooLong {
		t.Fatalf("got %v, want ErrPayloadTooLong", err)
	}
}

// scenario1Key is spec.md §8 scenario 1's key, 0x00...0F.
func scenario1Key() Key {
	var k Key
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

// TestScenario1UplinkEncode ports spec.md §8 scenario 1 verbatim: devid
// 0xFEDCBA98, seqnum 0x123, key 0x00...0F, payload "Hello" (5 bytes),
// replicas requested, downlink not requested.
func TestScenario1UplinkEncode(t *testing.T) {
	common := CommonInfo{Devid: 0xFEDCBA98, Seqnum: 0x123, Key: scenario1Key()}
	plain := UplinkPlain{Replicas: true, RequestDownlink: false, PayloadLen: 5}
	copy(plain.Payload[:5], []byte("Hello"))

	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}

	for i, frame := range encoded.Frame {
		if frame == nil {
			t.Fatalf("replica %d not populated", i)
		}
		if len(frame) != len(encoded.Frame[0]) {
			t.Fatalf("replica %d length = %d, want %d (same as replica 0)", i, len(frame), len(encoded.Frame[0]))
		}
	}
}

// TestScenario2UplinkDecode ports spec.md §8 scenario 2: decoding
// scenario 1's replica 0 with the same key returns the original plain
// message.
func TestScenario2UplinkDecode(t *testing.T) {
	common := CommonInfo{Devid: 0xFEDCBA98, Seqnum: 0x123, Key: scenario1Key()}
	plain := UplinkPlain{Replicas: true, RequestDownlink: false, PayloadLen: 5}
	copy(plain.Payload[:5], []byte("Hello"))

	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}

	var replica0 UplinkEncoded
	replica0.Frame[0] = encoded.Frame[0]
	replica0.FramelenNibbles = encoded.FramelenNibbles

	got, gotCommon, err := DecodeUplink(replica0, common.Key, true)
	if err != nil {
		t.Fatalf("DecodeUplink: %v", err)
	}
	if gotCommon.Devid != common.Devid || gotCommon.Seqnum != common.Seqnum {
		t.Fatalf("common info mismatch: %+v", gotCommon)
	}
	if got.PayloadLen != 5 || string(got.Payload[:5]) != "Hello" {
		t.Fatalf("got payload %q, want %q", got.Payload[:got.PayloadLen], "Hello")
	}
	if got.RequestDownlink {
		t.Fatalf("got RequestDownlink = true, want false")
	}
}

// TestScenario3UplinkSinglebit ports spec.md §8 scenario 3: a single-bit
// frame with payload byte 0x10 decodes with singlebit=true and a set bit.
func TestScenario3UplinkSinglebit(t *testing.T) {
	common := CommonInfo{Devid: 0xFEDCBA98, Seqnum: 0x123, Key: scenario1Key()}
	plain := UplinkPlain{Singlebit: true}
	plain.Payload[0] = 0x10

	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}
	if len(encoded.Frame[0]) != 13 {
		t.Fatalf("frame length = %d, want 13", len(encoded.Frame[0]))
	}

	got, _, err := DecodeUplink(encoded, common.Key, true)
	if err != nil {
		t.Fatalf("DecodeUplink: %v", err)
	}
	if !got.Singlebit {
		t.Fatalf("got Singlebit = false, want true")
	}
	if got.Payload[0]&0x10 == 0 {
		t.Fatalf("got Payload[0] = %#x, want bit 0x10 set", got.Payload[0])
	}
}

// TestScenario4UplinkWrongKey ports spec.md §8 scenario 4 using scenario
// 1's parameters: decoding with the wrong key passes CRC but fails MAC.
func TestScenario4UplinkWrongKey(t *testing.T) {
	common := CommonInfo{Devid: 0xFEDCBA98, Seqnum: 0x123, Key: scenario1Key()}
	plain := UplinkPlain{Replicas: true, PayloadLen: 5}
	copy(plain.Payload[:5], []byte("Hello"))

	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}

	wrongKey := scenario1Key()
	wrongKey[0] ^= 0xFF

	_, _, err = DecodeUplink(encoded, wrongKey, true)
	if err != ErrMacInvalid {
		t.Fatalf("got %v, want ErrMacInvalid (CRC should pass, MAC should fail)", err)
	}
}

func TestUplinkDecodeWithoutKeySkipsMAC(t *testing.T) {
	common := uplinkCommon()
	plain := UplinkPlain{PayloadLen: 2}
	plain.Payload[0], plain.Payload[1] = 0xAB, 0xCD
	encoded, err := EncodeUplink(plain, common)
	if err != nil {
		t.Fatalf("EncodeUplink: %v", err)
	}

	got, gotCommon, err := DecodeUplink(encoded, Key{}, false)
	if err != nil {
		t.Fatalf("DecodeUplink: %v", err)
	}
	if got.Payload[0] != 0xAB || got.Payload[1] != 0xCD {
		t.Fatalf("got %+v", got)
	}
	if gotCommon.Seqnum != common.Seqnum || gotCommon.Devid != common.Devid {
		t.Fatalf("common info mismatch: %+v", gotCommon)
	}
}
