package sigfox

import (
	"crypto/aes"
	"encoding/binary"
)

// aesBlock evaluates the single AES-128 block that both MAC derivation and
// keystream generation are built from: AES(key, devid(LE,4B) || seqnum(2B)
// || extra(<=9B, zero-padded) || counter(1B)).
//
// spec.md §4.3/§9 Q3 leaves it open whether MAC and keystream share one
// AES invocation or use distinct ones; this implementation derives both
// from the same block shape (varying only the counter byte), matching the
// "MAY be identical" language and keeping a single, auditable primitive.
func aesBlock(key Key, devid uint32, seqnum uint16, extra []byte, counter byte) ([16]byte, error) {
	var in [16]byte

	binary.LittleEndian.PutUint32(in[0:4], devid)
	in[4] = byte(seqnum >> 8)
	in[5] = byte(seqnum)

	n := copy(in[6:15], extra)
	_ = n
	in[15] = counter

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return [16]byte{}, err
	}

	var out [16]byte
	block.Encrypt(out[:], in[:])
	return out, nil
}

// ComputeMAC derives the full 16-byte MAC block for (key, devid, seqnum,
// bytes). Callers keep the leading k bytes: 3 or 4 depending on the
// uplink frame type (frameTypeInfo.macLen), 2 for downlink.
func ComputeMAC(key Key, devid uint32, seqnum uint16, data []byte) ([16]byte, error) {
	return aesBlock(key, devid, seqnum, data, 0x00)
}

// ApplyKeystream XORs buf in place with an AES-derived keystream of the
// same length, generated from (key, devid, seqnum). It is its own
// inverse: calling it twice with the same arguments restores buf.
func ApplyKeystream(key Key, devid uint32, seqnum uint16, buf []byte) error {
	for offset := 0; offset < len(buf); offset += 16 {
		counter := byte(offset/16) + 1
		pad, err := aesBlock(key, devid, seqnum, nil, counter)
		if err != nil {
			return err
		}

		end := offset + 16
		if end > len(buf) {
			end = len(buf)
		}
		for i := offset; i < end; i++ {
			buf[i] ^= pad[i-offset]
		}
	}
	return nil
}
