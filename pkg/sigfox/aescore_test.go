package sigfox

import "testing"

func testKey() Key {
	var k Key
	for i := range k {
		k[i] = byte(i * 17)
	}
	return k
}

func TestApplyKeystreamIsSelfInverse(t *testing.T) {
	key := testKey()
	original := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	buf := append([]byte(nil), original...)

	if err := ApplyKeystream(key, 42, 7, buf); err != nil {
		t.Fatalf("ApplyKeystream: %v", err)
	}
	if string(buf) == string(original) {
		t.Fatalf("keystream did not change the buffer")
	}

	if err := ApplyKeystream(key, 42, 7, buf); err != nil {
		t.Fatalf("ApplyKeystream (second pass): %v", err)
	}
	for i := range original {
		if buf[i] != original[i] {
			t.Fatalf("byte %d: got %#x, want %#x after round trip", i, buf[i], original[i])
		}
	}
}

func TestApplyKeystreamSpansMultipleBlocks(t *testing.T) {
	key := testKey()
	buf := make([]byte, 40)
	for i := range buf {
		buf[i] = byte(i)
	}
	original := append([]byte(nil), buf...)

	if err := ApplyKeystream(key, 1, 1, buf); err != nil {
		t.Fatalf("ApplyKeystream: %v", err)
	}
	if err := ApplyKeystream(key, 1, 1, buf); err != nil {
		t.Fatalf("ApplyKeystream: %v", err)
	}
	for i := range original {
		if buf[i] != original[i] {
			t.Fatalf("byte %d mismatch after round trip across block boundary", i)
		}
	}
}

func TestComputeMACDependsOnKeyAndContext(t *testing.T) {
	key1 := testKey()
	key2 := testKey()
	key2[0] ^= 0xFF

	data := []byte{0x11, 0x22, 0x33}

	mac1, err := ComputeMAC(key1, 100, 5, data)
	if err != nil {
		t.Fatalf("ComputeMAC: %v", err)
	}
	mac2, err := ComputeMAC(key2, 100, 5, data)
	if err != nil {
		t.Fatalf("ComputeMAC: %v", err)
	}
	if mac1 == mac2 {
		t.Fatalf("MAC did not change with a different key")
	}

	mac3, err := ComputeMAC(key1, 100, 6, data)
	if err != nil {
		t.Fatalf("ComputeMAC: %v", err)
	}
	if mac1 == mac3 {
		t.Fatalf("MAC did not change with a different sequence number")
	}
}
