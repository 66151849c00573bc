package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sigfoxserver/sigfox-server/internal/models"
)

// ========== Device Methods ==========

// CreateDevice creates a new device
func (s *PostgresStore) CreateDevice(ctx context.Context, device *models.Device) error {
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}

	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now

	query := `
        INSERT INTO devices (
            id, devid, created_at, updated_at, key, name, is_disabled,
            last_seqnum
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		device.ID, device.Devid, device.CreatedAt, device.UpdatedAt,
		device.Key, device.Name, device.IsDisabled, device.LastSeqnum,
	)

	return translateErr(err)
}

// GetDevice gets a device by its 32-bit Sigfox device id
func (s *PostgresStore) GetDevice(ctx context.Context, devid uint32) (*models.Device, error) {
	query := `
        SELECT id, devid, created_at, updated_at, key, name, is_disabled,
               last_seen_at, last_seqnum
        FROM devices
        WHERE devid = $1`

	device := &models.Device{}

	err := s.getDB().QueryRowContext(ctx, query, devid).Scan(
		&device.ID, &device.Devid, &device.CreatedAt, &device.UpdatedAt,
		&device.Key, &device.Name, &device.IsDisabled,
		&device.LastSeenAt, &device.LastSeqnum,
	)

	if err != nil {
		return nil, translateErr(err)
	}

	return device, nil
}

// UpdateDevice updates a device's mutable fields
func (s *PostgresStore) UpdateDevice(ctx context.Context, device *models.Device) error {
	device.UpdatedAt = time.Now()

	query := `
        UPDATE devices SET
            updated_at = $2, key = $3, name = $4, is_disabled = $5,
            last_seen_at = $6, last_seqnum = $7
        WHERE devid = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		device.Devid, device.UpdatedAt, device.Key, device.Name,
		device.IsDisabled, device.LastSeenAt, device.LastSeqnum,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteDevice deletes a device
func (s *PostgresStore) DeleteDevice(ctx context.Context, devid uint32) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM devices WHERE devid = $1", devid)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListDevices lists devices ordered by devid
func (s *PostgresStore) ListDevices(ctx context.Context, limit, offset int) ([]*models.Device, int64, error) {
	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM devices").Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, devid, created_at, updated_at, key, name, is_disabled,
               last_seen_at, last_seqnum
        FROM devices
        ORDER BY devid ASC
        LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		device := &models.Device{}
		err := rows.Scan(
			&device.ID, &device.Devid, &device.CreatedAt, &device.UpdatedAt,
			&device.Key, &device.Name, &device.IsDisabled,
			&device.LastSeenAt, &device.LastSeqnum,
		)
		if err != nil {
			return nil, 0, err
		}
		devices = append(devices, device)
	}

	return devices, count, nil
}

// UpdateLastSeen stores seqnum as devid's last-seen seqnum, overwriting
// the stored value whether or not it is higher.
func (s *PostgresStore) UpdateLastSeen(ctx context.Context, devid uint32, seqnum uint16, seenAt time.Time) error {
	result, err := s.getDB().ExecContext(ctx,
		"UPDATE devices SET last_seqnum = $2, last_seen_at = $3, updated_at = $3 WHERE devid = $1",
		devid, seqnum, seenAt,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
