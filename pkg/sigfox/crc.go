package sigfox

import "github.com/snksoft/crc"

// uplink CRC-16: poly 0x1021, init 0, not reflected, final xor 0xFFFF.
var crc16Params = &crc.Parameters{
	Width:      16,
	Polynomial: 0x1021,
	Init:       0x0000,
	ReflectIn:  false,
	ReflectOut: false,
	FinalXor:   0xFFFF,
}

// downlink CRC-8: poly 0x07, init 0, no reflection, no final xor.
var crc8Params = &crc.Parameters{
	Width:      8,
	Polynomial: 0x07,
	Init:       0x00,
	ReflectIn:  false,
	ReflectOut: false,
	FinalXor:   0x00,
}

// CRC16 computes the uplink CRC over the frame header (excluding the CRC
// field itself) concatenated with the payload.
func CRC16(data []byte) uint16 {
	return uint16(crc.NewHash(crc16Params).CalculateCRC(data))
}

// CRC8 computes the downlink CRC over the 8-byte payload.
func CRC8(data []byte) uint8 {
	return uint8(crc.NewHash(crc8Params).CalculateCRC(data))
}
