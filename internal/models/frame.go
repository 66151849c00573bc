package models

import (
	"time"

	"github.com/google/uuid"
)

// FrameDirection distinguishes an uplink log entry from a downlink one.
type FrameDirection string

const (
	DirectionUplink   FrameDirection = "uplink"
	DirectionDownlink FrameDirection = "downlink"
)

// FrameLogEntry records one encode/decode call against the codec core,
// success or failure, for audit and debugging. It is the Sigfox
// equivalent of the teacher's UplinkFrame/DownlinkFrame rows, collapsed
// into a single table since both directions share the same diagnostic
// shape here.
type FrameLogEntry struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Devid     uint32         `json:"devid" db:"devid"`
	Direction FrameDirection `json:"direction" db:"direction"`
	Seqnum    uint16         `json:"seqnum" db:"seqnum"`

	// Frame is the raw on-air bytes (replica 0 for uplink).
	Frame []byte `json:"frame" db:"frame"`
	// Payload is the decoded/plain application payload, when decode
	// succeeded.
	Payload []byte `json:"payload,omitempty" db:"payload"`

	CRCOk        bool `json:"crcOk" db:"crc_ok"`
	MACOk        bool `json:"macOk" db:"mac_ok"`
	FECCorrected bool `json:"fecCorrected" db:"fec_corrected"`

	Error string `json:"error,omitempty" db:"error"`

	ReceivedAt time.Time `json:"receivedAt" db:"received_at"`
}
