package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sigfoxserver/sigfox-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store is the persistence boundary for the device registry and the
// frame log. It is deliberately small: the codec core in pkg/sigfox is
// pure and stateless, so the only state this server owns is "what key
// does devid have" and "what happened on recent encode/decode calls".
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Device registry methods
	CreateDevice(ctx context.Context, device *models.Device) error
	GetDevice(ctx context.Context, devid uint32) (*models.Device, error)
	UpdateDevice(ctx context.Context, device *models.Device) error
	DeleteDevice(ctx context.Context, devid uint32) error
	ListDevices(ctx context.Context, limit, offset int) ([]*models.Device, int64, error)

	// UpdateLastSeen stores seqnum and seenAt as devid's last-seen state,
	// overwriting the stored values. The brute-force downlink handlers do
	// not read it; their seqnum search always starts at zero.
	UpdateLastSeen(ctx context.Context, devid uint32, seqnum uint16, seenAt time.Time) error

	// Frame log methods
	CreateFrameLogEntry(ctx context.Context, entry *models.FrameLogEntry) error
	GetFrameLogEntry(ctx context.Context, id uuid.UUID) (*models.FrameLogEntry, error)
	ListFrameLogEntries(ctx context.Context, devid uint32, limit, offset int) ([]*models.FrameLogEntry, int64, error)

	// Close the store
	Close() error
}
