package sigfox

import "testing"

func TestCRC16Deterministic(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	a := CRC16(data)
	b := CRC16(data)
	if a != b {
		t.Fatalf("CRC16 not deterministic: %#x != %#x", a, b)
	}
}

func TestCRC16DetectsSingleBitFlip(t *testing.T) {
	data := []byte{0x10, 0x20, 0x30, 0x40}
	want := CRC16(data)

	flipped := append([]byte(nil), data...)
	flipped[2] ^= 0x01
	got := CRC16(flipped)

	if got == want {
		t.Fatalf("CRC16 did not change after single-bit flip")
	}
}

func TestCRC8DetectsSingleBitFlip(t *testing.T) {
	data := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0x01, 0x02, 0x03, 0x04}
	want := CRC8(data)

	flipped := append([]byte(nil), data...)
	flipped[5] ^= 0x40
	got := CRC8(flipped)

	if got == want {
		t.Fatalf("CRC8 did not change after single-bit flip")
	}
}
