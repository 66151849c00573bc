package sigfox

// Downlink frame layout (spec.md §4.5, SFXDLFramelen = 15 bytes, fixed):
//
//	offset 0..7  (8 bytes):  payload
//	offset 8     (1 byte):   CRC8
//	offset 9..10 (2 bytes):  MAC
//	offset 11..14 (4 bytes): FEC parity over bytes 0..10
//
// The whole 15-byte frame is scrambled (LFSR-whitened) as the last
// encode step / first decode step - unlike uplink, there is no portion
// that must stay readable without the key, since downlink has no
// equivalent of uplink's "CRC passes even with the wrong key" property.
var defaultScrambler Descrambler = NewLFSRScrambler()

// EncodeDownlink builds the on-air downlink frame for plain, addressed to
// (devid, seqnum) under key. scrambler may be nil to use the package
// default (LFSRScrambler); pass DisabledScrambler{} to reproduce the
// reference implementation's stub behavior.
func EncodeDownlink(plain DownlinkPlain, common CommonInfo, scrambler Descrambler) (DownlinkEncoded, error) {
	if scrambler == nil {
		scrambler = defaultScrambler
	}

	var encoded DownlinkEncoded
	frame := encoded.Frame[:]

	copy(frame[dlPayloadOffset:dlPayloadOffset+SFXDLPayloadlen], plain.Payload[:])

	frame[dlCRCOffset] = CRC8(frame[dlPayloadOffset : dlPayloadOffset+SFXDLPayloadlen])

	mac, err := ComputeMAC(common.Key, common.Devid, common.Seqnum, frame[:dlMACOffset])
	if err != nil {
		return DownlinkEncoded{}, err
	}
	copy(frame[dlMACOffset:dlFECOffset], mac[:2])

	var data [fecDataLen]byte
	copy(data[:], frame[:dlFECOffset])
	parity := fecEncode(data)
	copy(frame[dlFECOffset:SFXDLFramelen], parity[:])

	if err := scrambler.Scramble(common.Devid, common.Seqnum, frame); err != nil {
		return DownlinkEncoded{}, err
	}

	return encoded, nil
}

// DecodeDownlink recovers the plain payload from encoded, given the
// (devid, seqnum) the frame was addressed to and the device's key.
// FEC correction is attempted before the CRC/MAC checks, per spec.md
// §4.5. Unlike uplink decode, DecodeDownlink never fails outright on a
// bad CRC or MAC - callers inspect CRCOk/MACOk/FECCorrected instead,
// since a downlink receiver typically needs to try many candidate
// seqnums/seeds (BruteForceSeqnum, BruteForceLFSRSeed) and treating every
// miss as an error would be noise. Only a scrambler failure is returned
// as an error.
func DecodeDownlink(encoded DownlinkEncoded, common CommonInfo, scrambler Descrambler) (DownlinkPlain, error) {
	if scrambler == nil {
		scrambler = defaultScrambler
	}

	frame := append([]byte(nil), encoded.Frame[:]...)
	if err := scrambler.Scramble(common.Devid, common.Seqnum, frame); err != nil {
		return DownlinkPlain{}, err
	}

	var data [fecDataLen]byte
	copy(data[:], frame[:dlFECOffset])
	var parity [fecParityLen]byte
	copy(parity[:], frame[dlFECOffset:SFXDLFramelen])

	corrected, wasCorrected := fecDecode(data, parity)
	copy(frame[:dlFECOffset], corrected[:])

	plain := DownlinkPlain{FECCorrected: wasCorrected}
	copy(plain.Payload[:], frame[dlPayloadOffset:dlPayloadOffset+SFXDLPayloadlen])

	wantCRC := CRC8(frame[dlPayloadOffset : dlPayloadOffset+SFXDLPayloadlen])
	plain.CRCOk = frame[dlCRCOffset] == wantCRC

	wantMAC, err := ComputeMAC(common.Key, common.Devid, common.Seqnum, frame[:dlMACOffset])
	if err != nil {
		return plain, err
	}
	plain.MACOk = frame[dlMACOffset] == wantMAC[0] && frame[dlMACOffset+1] == wantMAC[1]

	return plain, nil
}

// BruteForceSeqnum tries every sequence number in [0, maxSeqnum] (inclusive,
// spec.md §5 mode 1) until one produces a CRC- and MAC-valid decode, and
// returns the first match. It exists because a downlink receiver often
// knows devid and key but must resynchronize seqnum after missed uplinks.
func BruteForceSeqnum(encoded DownlinkEncoded, devid uint32, key Key, maxSeqnum uint16, scrambler Descrambler) (DownlinkPlain, uint16, error) {
	for seqnum := uint16(0); ; seqnum++ {
		common := CommonInfo{Seqnum: seqnum, Devid: devid, Key: key}
		plain, err := DecodeDownlink(encoded, common, scrambler)
		if err != nil {
			return DownlinkPlain{}, 0, err
		}
		if plain.CRCOk && plain.MACOk {
			return plain, seqnum, nil
		}
		if seqnum == maxSeqnum {
			break
		}
	}
	return DownlinkPlain{}, 0, ErrCrcInvalid
}

// BruteForceLFSRSeed tries every LFSR seed in [0, 0xFFFF] with the given
// polynomial until one produces a CRC- and MAC-valid decode (spec.md §5
// mode 2), for use when the scrambler's seed-derivation function itself
// is unknown or unavailable.
func BruteForceLFSRSeed(encoded DownlinkEncoded, common CommonInfo, polynomial uint16) (DownlinkPlain, uint16, error) {
	s := &LFSRScrambler{Polynomial: polynomial}

	seed := uint16(0)
	for {
		frame := append([]byte(nil), encoded.Frame[:]...)
		ks := s.keystream(seed, len(frame))
		for i := range frame {
			frame[i] ^= ks[i]
		}

		var fixed DownlinkEncoded
		copy(fixed.Frame[:], frame)

		plain, err := decodeDownlinkNoScramble(fixed, common)
		if err != nil {
			return DownlinkPlain{}, 0, err
		}
		if plain.CRCOk && plain.MACOk {
			return plain, seed, nil
		}

		if seed == 0xFFFF {
			break
		}
		seed++
	}
	return DownlinkPlain{}, 0, ErrCrcInvalid
}

// decodeDownlinkNoScramble runs the CRC/FEC/MAC pipeline on an
// already-descrambled frame by calling DecodeDownlink with an identity
// scrambler; BruteForceLFSRSeed uses it after doing its own descrambling.
func decodeDownlinkNoScramble(encoded DownlinkEncoded, common CommonInfo) (DownlinkPlain, error) {
	return DecodeDownlink(encoded, common, noopScrambler{})
}

type noopScrambler struct{}

func (noopScrambler) Scramble(uint32, uint16, []byte) error { return nil }
