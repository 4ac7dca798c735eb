package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gmc453/workshop-booker/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ServiceRepository struct {
	pool *pgxpool.Pool
}

func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

// GetByID returns the service or (nil, nil) when it does not exist.
func (r *ServiceRepository) GetByID(ctx context.Context, id int64) (*model.Service, error) {
	query := `
		SELECT id, workshop_id, name, description, price_cents, duration_minutes, is_active, created_at
		FROM services
		WHERE id = $1
	`

	var svc model.Service
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&svc.ID,
		&svc.WorkshopID,
		&svc.Name,
		&svc.Description,
		&svc.PriceCents,
		&svc.DurationMinutes,
		&svc.IsActive,
		&svc.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get service by id: %w", err)
	}

	return &svc, nil
}

// FirstActiveByWorkshop returns the oldest active service of a workshop,
// or (nil, nil) when the workshop has none. Alternative-slot suggestions
// use it as the representative service for naming and pricing.
func (r *ServiceRepository) FirstActiveByWorkshop(ctx context.Context, workshopID int64) (*model.Service, error) {
	query := `
		SELECT id, workshop_id, name, description, price_cents, duration_minutes, is_active, created_at
		FROM services
		WHERE workshop_id = $1 AND is_active = TRUE
		ORDER BY id
		LIMIT 1
	`

	var svc model.Service
	err := r.pool.QueryRow(ctx, query, workshopID).Scan(
		&svc.ID,
		&svc.WorkshopID,
		&svc.Name,
		&svc.Description,
		&svc.PriceCents,
		&svc.DurationMinutes,
		&svc.IsActive,
		&svc.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get first active service: %w", err)
	}

	return &svc, nil
}
