package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gmc453/workshop-booker/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSlotUnavailable is returned by BookTx when the conditional update
// matches no row, meaning the slot is gone or a concurrent booking won.
var ErrSlotUnavailable = errors.New("slot is not available")

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

// GetByID returns the slot or (nil, nil) when it does not exist.
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error) {
	query := `
		SELECT id, workshop_id, start_time, end_time, status, created_at
		FROM available_slots
		WHERE id = $1
	`

	var slot model.AvailableSlot
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&slot.ID,
		&slot.WorkshopID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Status,
		&slot.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return &slot, nil
}

// BookTx transitions a slot to booked inside the caller's transaction.
// The status guard in the WHERE clause is what prevents double-booking:
// of two concurrent transactions only one update matches a row, the other
// gets ErrSlotUnavailable.
func (r *SlotRepository) BookTx(ctx context.Context, tx pgx.Tx, slotID int64) error {
	query := `
		UPDATE available_slots
		SET status = 'booked'
		WHERE id = $1 AND status = 'available'
	`

	result, err := tx.Exec(ctx, query, slotID)
	if err != nil {
		return fmt.Errorf("book slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}

	return nil
}

// FindAvailable returns available slots of a workshop whose start time
// falls in [from, to], ordered by start time.
func (r *SlotRepository) FindAvailable(ctx context.Context, workshopID int64, from, to time.Time) ([]*model.AvailableSlot, error) {
	query := `
		SELECT id, workshop_id, start_time, end_time, status, created_at
		FROM available_slots
		WHERE workshop_id = $1
		  AND status = 'available'
		  AND start_time >= $2
		  AND start_time <= $3
		ORDER BY start_time
	`

	rows, err := r.pool.Query(ctx, query, workshopID, from, to)
	if err != nil {
		return nil, fmt.Errorf("find available slots: %w", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

// FindNearby returns available slots around a requested time that are long
// enough for the given duration. Filtering stays in SQL on purpose: the
// candidate set can be large and the service layer only ranks what comes
// back.
func (r *SlotRepository) FindNearby(ctx context.Context, workshopID int64, center time.Time, horizon time.Duration, minDurationMinutes int) ([]*model.AvailableSlot, error) {
	query := `
		SELECT id, workshop_id, start_time, end_time, status, created_at
		FROM available_slots
		WHERE workshop_id = $1
		  AND status = 'available'
		  AND start_time >= $2
		  AND start_time <= $3
		  AND end_time - start_time >= make_interval(mins => $4)
		ORDER BY start_time
	`

	rows, err := r.pool.Query(ctx, query, workshopID, center.Add(-horizon), center.Add(horizon), minDurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("find nearby slots: %w", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

func scanSlots(rows pgx.Rows) ([]*model.AvailableSlot, error) {
	var slots []*model.AvailableSlot
	for rows.Next() {
		var slot model.AvailableSlot
		err := rows.Scan(
			&slot.ID,
			&slot.WorkshopID,
			&slot.StartTime,
			&slot.EndTime,
			&slot.Status,
			&slot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, &slot)
	}

	return slots, rows.Err()
}
