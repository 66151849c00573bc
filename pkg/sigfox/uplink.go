package sigfox

// Uplink header bit layout (56 bits / 7 bytes, MSB-first, written via the
// bit utilities in bits.go):
//
//	offset  0 (3 bits): frame type
//	offset  3 (1 bit):  request_downlink
//	offset  4 (4 bits): payload length (0..12)
//	offset  8 (12 bits): sequence number
//	offset 20 (4 bits): reserved, always 0
//	offset 24 (32 bits): device id, written MSB-first here and
//	                      reinterpreted little-endian for the crypto core
//	                      (spec.md §6: "device id is little-endian in the
//	                      MAC-input block").
const (
	ulHeaderLen        = 7
	ulFtypeBitOffset    = 0
	ulReqdlBitOffset    = 3
	ulPayloadlenBitOffs = 4
	ulSeqnumBitOffset   = 8
	ulDevidBitOffset    = 24
)

// EncodeUplink builds the on-air uplink frame(s) for plain, per spec.md
// §4.7. Only the MAC field depends on the key, and it is the only field
// the keystream obfuscates; CRC is computed over header+payload in the
// clear so that decode can always validate CRC whether or not the key is
// known.
func EncodeUplink(plain UplinkPlain, common CommonInfo) (UplinkEncoded, error) {
	ft, err := selectFrameType(plain.Singlebit, plain.PayloadLen)
	if err != nil {
		return UplinkEncoded{}, err
	}

	frame := make([]byte, ft.framelen)

	if err := writeUplinkHeader(frame, ft, plain, common); err != nil {
		return UplinkEncoded{}, err
	}

	payloadOffset := ulHeaderLen
	if plain.Singlebit {
		frame[payloadOffset] = plain.Payload[0]
	} else {
		copy(frame[payloadOffset:payloadOffset+int(plain.PayloadLen)], plain.Payload[:plain.PayloadLen])
	}

	crcOffset := payloadOffset + int(ft.maxPayload)
	crc := CRC16(frame[:crcOffset])
	frame[crcOffset] = byte(crc >> 8)
	frame[crcOffset+1] = byte(crc)

	macOffset := crcOffset + 2
	mac, err := ComputeMAC(common.Key, common.Devid, common.Seqnum, frame[:macOffset])
	if err != nil {
		return UplinkEncoded{}, err
	}
	copy(frame[macOffset:macOffset+int(ft.macLen)], mac[:ft.macLen])

	if err := ApplyKeystream(common.Key, common.Devid, common.Seqnum, frame[macOffset:macOffset+int(ft.macLen)]); err != nil {
		return UplinkEncoded{}, err
	}

	encoded := UplinkEncoded{FramelenNibbles: uint8(len(frame))*2 - 1}
	encoded.Frame[0] = frame

	if plain.Replicas {
		encoded.Frame[1], encoded.Frame[2] = generateReplicas(frame)
	}

	return encoded, nil
}

// writeUplinkHeader packs the frame-type, request_downlink, payload
// length, sequence number and device id fields into frame's first
// ulHeaderLen bytes.
func writeUplinkHeader(frame []byte, ft frameTypeInfo, plain UplinkPlain, common CommonInfo) error {
	if err := SetBits(frame, ulFtypeBitOffset, uint32(ft.ftype), 3); err != nil {
		return err
	}
	reqdl := uint32(0)
	if plain.RequestDownlink {
		reqdl = 1
	}
	if err := SetBits(frame, ulReqdlBitOffset, reqdl, 1); err != nil {
		return err
	}
	if err := SetBits(frame, ulPayloadlenBitOffs, uint32(plain.PayloadLen), 4); err != nil {
		return err
	}
	if err := SetBits(frame, ulSeqnumBitOffset, uint32(common.Seqnum), 12); err != nil {
		return err
	}
	if err := SetBits(frame, ulDevidBitOffset, common.Devid, 32); err != nil {
		return err
	}
	return nil
}

// DecodeUplink recovers the plain message and common info from replica 0
// of encoded. keyPresent controls whether MAC verification is attempted;
// when false, key is not used for a MAC check but the
// CommonInfo returned is still fully populated (CRC never depends on the
// key in this codec - see EncodeUplink).
func DecodeUplink(encoded UplinkEncoded, key Key, keyPresent bool) (UplinkPlain, CommonInfo, error) {
	if encoded.FramelenNibbles%2 == 0 {
		return UplinkPlain{}, CommonInfo{}, ErrFramelenEven
	}

	frame := append([]byte(nil), encoded.Frame[0]...)

	ft, ok := frameTypeByLength(uint8(len(frame)))
	if !ok {
		return UplinkPlain{}, CommonInfo{}, ErrFtypeMismatch
	}

	gotFtype, err := GetBits(frame, ulFtypeBitOffset, 3)
	if err != nil {
		return UplinkPlain{}, CommonInfo{}, err
	}
	if uint8(gotFtype) != ft.ftype {
		return UplinkPlain{}, CommonInfo{}, ErrFtypeMismatch
	}

	payloadOffset := ulHeaderLen
	crcOffset := payloadOffset + int(ft.maxPayload)
	macOffset := crcOffset + 2

	gotCRC := uint16(frame[crcOffset])<<8 | uint16(frame[crcOffset+1])
	wantCRC := CRC16(frame[:crcOffset])
	if gotCRC != wantCRC {
		return UplinkPlain{}, CommonInfo{}, ErrCrcInvalid
	}

	reqdlBit, _ := GetBits(frame, ulReqdlBitOffset, 1)
	payloadlenBits, _ := GetBits(frame, ulPayloadlenBitOffs, 4)
	seqnumBits, _ := GetBits(frame, ulSeqnumBitOffset, 12)
	devidBits, _ := GetBits(frame, ulDevidBitOffset, 32)

	common := CommonInfo{
		Seqnum: uint16(seqnumBits),
		Devid:  devidBits,
		Key:    key,
	}

	if keyPresent {
		if err := ApplyKeystream(key, common.Devid, common.Seqnum, frame[macOffset:macOffset+int(ft.macLen)]); err != nil {
			return UplinkPlain{}, CommonInfo{}, err
		}

		wantMAC, err := ComputeMAC(key, common.Devid, common.Seqnum, frame[:macOffset])
		if err != nil {
			return UplinkPlain{}, CommonInfo{}, err
		}
		for i := 0; i < int(ft.macLen); i++ {
			if frame[macOffset+i] != wantMAC[i] {
				return UplinkPlain{}, CommonInfo{}, ErrMacInvalid
			}
		}
	}

	plain := UplinkPlain{
		Singlebit:       ft.ftype == ftypeSinglebit,
		RequestDownlink: reqdlBit == 1,
	}

	if plain.Singlebit {
		plain.Payload[0] = frame[payloadOffset]
		plain.PayloadLen = 0
	} else {
		plain.PayloadLen = uint8(payloadlenBits)
		copy(plain.Payload[:plain.PayloadLen], frame[payloadOffset:payloadOffset+int(plain.PayloadLen)])
	}

	return plain, common, nil
}
