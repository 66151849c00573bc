package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/sigfoxserver/sigfox-server/pkg/sigfox"
)

// Device is a registered Sigfox end device: its 32-bit id, shared key and
// the last sequence number stored for it. The brute-force downlink
// handlers use the stored key; they do not read LastSeqnum.
type Device struct {
	BaseModel

	Devid uint32    `json:"devid" db:"devid"`
	Key   DeviceKey `json:"-" db:"key"`
	Name  string    `json:"name" db:"name"`

	IsDisabled bool       `json:"isDisabled" db:"is_disabled"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty" db:"last_seen_at"`

	LastSeqnum uint16 `json:"lastSeqnum" db:"last_seqnum"`
}

// DeviceKey wraps sigfox.Key so it can be stored as a bytea column and
// kept out of JSON responses.
type DeviceKey sigfox.Key

// Value implements driver.Valuer.
func (k DeviceKey) Value() (driver.Value, error) {
	return k[:], nil
}

// Scan implements sql.Scanner.
func (k *DeviceKey) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into DeviceKey", value)
	}
	if len(b) != len(k) {
		return fmt.Errorf("invalid key length %d", len(b))
	}
	copy(k[:], b)
	return nil
}

// SigfoxKey returns k as a sigfox.Key for use with the codec core.
func (k DeviceKey) SigfoxKey() sigfox.Key {
	return sigfox.Key(k)
}
