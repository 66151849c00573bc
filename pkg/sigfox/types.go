// Package sigfox implements the bit-level codec for Sigfox uplink and
// downlink frames: payload placement, CRC, AES-derived MAC, uplink replicas,
// downlink parity FEC and frame obfuscation/scrambling. It is a pure transformation
// library - given a plain message it produces the on-air byte sequence, and
// vice versa.
package sigfox

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key is a device's 128-bit shared secret.
type Key [16]byte

// String returns the hex representation of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// MarshalJSON implements json.Marshaler.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Key) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(k) {
		return fmt.Errorf("sigfox: invalid key length %d", len(b))
	}

	copy(k[:], b)
	return nil
}

// CommonInfo carries the fields shared by every uplink/downlink exchange.
type CommonInfo struct {
	// Seqnum is the 12-bit uplink sequence number (0..0xFFF).
	Seqnum uint16
	// Devid is the 32-bit device ID, little-endian on the wire.
	Devid uint32
	// Key is the device's shared secret.
	Key Key
}

// UplinkPlain is the decoded/plain-text form of an uplink message.
type UplinkPlain struct {
	// Singlebit requests the one-bit frame type; Payload[0] must then be
	// 0x00 or 0x10 and PayloadLen is always 0.
	Singlebit bool
	// RequestDownlink sets the downlink-request flag bit in the header.
	RequestDownlink bool
	// Replicas requests emission of replicas 1 and 2 in addition to 0.
	Replicas bool
	// Payload holds up to 12 bytes of application payload.
	Payload [12]byte
	// PayloadLen is 0..12; 0 is only valid when Singlebit is set.
	PayloadLen uint8
}

// UplinkEncoded is the on-air form of an uplink message (excluding preamble).
type UplinkEncoded struct {
	// Frame holds the three replicas; Frame[0] is always populated,
	// Frame[1]/Frame[2] only when the message requested replicas.
	Frame [3][]byte
	// FramelenNibbles is the length of each frame in nibbles; always odd.
	FramelenNibbles uint8
}

// DownlinkPlain is the decoded form of a downlink message.
type DownlinkPlain struct {
	// Payload is exactly 8 bytes of application payload.
	Payload [8]byte

	// CRCOk, MACOk and FECCorrected are populated on decode only.
	CRCOk        bool
	MACOk        bool
	FECCorrected bool
}

// DownlinkEncoded is the on-air form of a downlink message (excluding
// preamble): exactly SFXDLFramelen bytes.
type DownlinkEncoded struct {
	Frame [SFXDLFramelen]byte
}

// Frame-type identifiers, selected by payload length on encode and
// re-derived from frame length on decode (see frameType/frameTypeInfo).
const (
	ftypeSinglebit uint8 = iota
	ftypeTiny
	ftypeSmall
	ftypeMedium
	ftypeLarge
)

// frameTypeInfo describes one uplink frame-type's on-wire layout.
//
// maxPayload is the size in bytes of the frame's payload *field* on the
// wire; for ftypeSinglebit this is 1 (it carries the literal bit-value
// byte) even though the logical PayloadLen is always 0. macLen is
// whatever remains once the fixed 7-byte header, the payload field and
// the 2-byte CRC are placed - spec.md §9 Q2 leaves the exact per-type MAC
// width undocumented, so this implementation derives it structurally
// rather than asserting the literal {2,3,4,5} set given only as an
// example range (see DESIGN.md).
type frameTypeInfo struct {
	ftype        uint8
	framelen     uint8 // total encoded frame length in bytes
	maxPayload   uint8
	macLen       uint8
	payloadRange [2]uint8
}

// frameTypes is indexed by ftype* above and fixes the length table from
// spec.md §3: singlebit->13, 1<=len<=1->14, 2..4->17, 5..8->21, 9..12->25.
var frameTypes = [5]frameTypeInfo{
	{ftype: ftypeSinglebit, framelen: 13, maxPayload: 1, macLen: 3, payloadRange: [2]uint8{0, 0}},
	{ftype: ftypeTiny, framelen: 14, maxPayload: 1, macLen: 4, payloadRange: [2]uint8{1, 1}},
	{ftype: ftypeSmall, framelen: 17, maxPayload: 4, macLen: 4, payloadRange: [2]uint8{2, 4}},
	{ftype: ftypeMedium, framelen: 21, maxPayload: 8, macLen: 4, payloadRange: [2]uint8{5, 8}},
	{ftype: ftypeLarge, framelen: 25, maxPayload: 12, macLen: 4, payloadRange: [2]uint8{9, 12}},
}

// selectFrameType returns the frameTypeInfo for a given (singlebit,
// payloadlen) pair, per the invariant in spec.md §3.
func selectFrameType(singlebit bool, payloadlen uint8) (frameTypeInfo, error) {
	if singlebit {
		return frameTypes[ftypeSinglebit], nil
	}
	switch {
	case payloadlen >= 1 && payloadlen <= 1:
		return frameTypes[ftypeTiny], nil
	case payloadlen >= 2 && payloadlen <= 4:
		return frameTypes[ftypeSmall], nil
	case payloadlen >= 5 && payloadlen <= 8:
		return frameTypes[ftypeMedium], nil
	case payloadlen >= 9 && payloadlen <= 12:
		return frameTypes[ftypeLarge], nil
	default:
		return frameTypeInfo{}, ErrPayloadTooLong
	}
}

// frameTypeByLength re-derives the frame type from an encoded frame's
// length in bytes, used by the decoder (spec.md §4.7 step 2).
func frameTypeByLength(framelenBytes uint8) (frameTypeInfo, bool) {
	for _, ft := range frameTypes {
		if ft.framelen == framelenBytes {
			return ft, true
		}
	}
	return frameTypeInfo{}, false
}

// Sigfox uplink/downlink preambles and length constants (spec.md §6).
var (
	// SFXULPreamble is the fixed uplink preamble, prepended to on-air bytes.
	SFXULPreamble = [2]byte{0xAA, 0xAA}
	// SFXULPreamblelenNibbles is SFXULPreamble's length in nibbles.
	SFXULPreamblelenNibbles = uint8(len(SFXULPreamble) * 2)

	// SFXDLPreamble is the fixed downlink preamble.
	SFXDLPreamble = [2]byte{0xAA, 0xAA}
)

// SFXDLPreamblelen is SFXDLPreamble's length in bytes.
const SFXDLPreamblelen = 2

// SFXDLFramelen is the fixed downlink frame length in bytes (excluding
// preamble): 8-byte payload + 1-byte CRC8 + 2-byte MAC + 4-byte FEC parity.
const SFXDLFramelen = 15

// SFXDLPayloadlen is the downlink payload length in bytes.
const SFXDLPayloadlen = 8

// downlink field offsets within the 15-byte frame.
const (
	dlPayloadOffset = 0
	dlCRCOffset     = 8
	dlMACOffset     = 9
	dlFECOffset     = 11
)
