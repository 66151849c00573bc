package models

import "time"

// UplinkDecodedMessage is the payload published on NATS subject
// "sigfox.uplink.decoded" after the gateway listener successfully decodes
// an uplink. The HTTP API's decode endpoint does not publish it.
type UplinkDecodedMessage struct {
	Devid      uint32    `json:"devid"`
	Seqnum     uint16    `json:"seqnum"`
	Payload    []byte    `json:"payload"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// DownlinkSendRequest is the payload expected on NATS subject
// "sigfox.downlink.send": an operator-facing request to encode and hand
// a downlink frame to the gateway.
type DownlinkSendRequest struct {
	Devid   uint32 `json:"devid"`
	Seqnum  uint16 `json:"seqnum"`
	Payload []byte `json:"payload"`
}

// DownlinkEncodedMessage is the payload published on NATS subject
// "sigfox.downlink.encoded" after a DownlinkSendRequest is encoded,
// standing in for the handoff to a real RF gateway.
type DownlinkEncodedMessage struct {
	Devid     uint32    `json:"devid"`
	Seqnum    uint16    `json:"seqnum"`
	Frame     []byte    `json:"frame"`
	EncodedAt time.Time `json:"encodedAt"`
}
