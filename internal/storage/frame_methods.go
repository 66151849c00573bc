package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sigfoxserver/sigfox-server/internal/models"
)

// CreateFrameLogEntry records one encode/decode call, success or failure.
func (s *PostgresStore) CreateFrameLogEntry(ctx context.Context, entry *models.FrameLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now()
	}

	query := `
        INSERT INTO frame_log (
            id, devid, direction, seqnum, frame, payload,
            crc_ok, mac_ok, fec_corrected, error, received_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.getDB().ExecContext(ctx, query,
		entry.ID, entry.Devid, entry.Direction, entry.Seqnum,
		entry.Frame, entry.Payload, entry.CRCOk, entry.MACOk,
		entry.FECCorrected, entry.Error, entry.ReceivedAt,
	)

	return err
}

// GetFrameLogEntry fetches a single entry by id.
func (s *PostgresStore) GetFrameLogEntry(ctx context.Context, id uuid.UUID) (*models.FrameLogEntry, error) {
	query := `
        SELECT id, devid, direction, seqnum, frame, payload,
               crc_ok, mac_ok, fec_corrected, error, received_at
        FROM frame_log
        WHERE id = $1`

	entry := &models.FrameLogEntry{}
	var errText sql.NullString

	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&entry.ID, &entry.Devid, &entry.Direction, &entry.Seqnum,
		&entry.Frame, &entry.Payload, &entry.CRCOk, &entry.MACOk,
		&entry.FECCorrected, &errText, &entry.ReceivedAt,
	)

	if err != nil {
		return nil, translateErr(err)
	}

	entry.Error = errText.String
	return entry, nil
}

// ListFrameLogEntries returns the most recent entries for devid, newest
// first.
func (s *PostgresStore) ListFrameLogEntries(ctx context.Context, devid uint32, limit, offset int) ([]*models.FrameLogEntry, int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM frame_log WHERE devid = $1", devid,
	).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, devid, direction, seqnum, frame, payload,
               crc_ok, mac_ok, fec_corrected, error, received_at
        FROM frame_log
        WHERE devid = $1
        ORDER BY received_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, devid, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.FrameLogEntry
	for rows.Next() {
		entry := &models.FrameLogEntry{}
		var errText sql.NullString

		err := rows.Scan(
			&entry.ID, &entry.Devid, &entry.Direction, &entry.Seqnum,
			&entry.Frame, &entry.Payload, &entry.CRCOk, &entry.MACOk,
			&entry.FECCorrected, &errText, &entry.ReceivedAt,
		)
		if err != nil {
			return nil, 0, err
		}

		entry.Error = errText.String
		entries = append(entries, entry)
	}

	return entries, count, nil
}
