package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gmc453/workshop-booker/internal/cache"
	"github.com/gmc453/workshop-booker/internal/model"
	"go.uber.org/zap"
)

const (
	// suggestionHorizon bounds the alternative-slot search to ±7 days
	// around the requested time.
	suggestionHorizon = 7 * 24 * time.Hour

	maxSuggestions = 5
)

type availabilitySlotStore interface {
	GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error)
	FindAvailable(ctx context.Context, workshopID int64, from, to time.Time) ([]*model.AvailableSlot, error)
	FindNearby(ctx context.Context, workshopID int64, center time.Time, horizon time.Duration, minDurationMinutes int) ([]*model.AvailableSlot, error)
}

type representativeServiceStore interface {
	FirstActiveByWorkshop(ctx context.Context, workshopID int64) (*model.Service, error)
}

// AvailabilityService answers availability queries and suggests alternative
// slots when a requested time conflicts. It never propagates internal
// errors: queries degrade to empty results and the root cause goes to the
// log.
type AvailabilityService struct {
	slotRepo    availabilitySlotStore
	serviceRepo representativeServiceStore
	calendar    *cache.AvailabilityCache
	logger      *zap.Logger
}

func NewAvailabilityService(
	slotRepo availabilitySlotStore,
	serviceRepo representativeServiceStore,
	calendar *cache.AvailabilityCache,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		slotRepo:    slotRepo,
		serviceRepo: serviceRepo,
		calendar:    calendar,
		logger:      logger,
	}
}

// SuggestAlternatives returns up to five available slots of the workshop
// closest to the requested time that can hold the requested duration,
// sorted by distance. The heavy filtering happens in SQL; this method only
// ranks and explains. The service label on each suggestion comes from the
// workshop's first active service, which is an approximation.
func (s *AvailabilityService) SuggestAlternatives(ctx context.Context, workshopID int64, requestedTime time.Time, durationMinutes int) []model.AlternativeSlot {
	slots, err := s.slotRepo.FindNearby(ctx, workshopID, requestedTime, suggestionHorizon, durationMinutes)
	if err != nil {
		s.logger.Error("Failed to query alternative slots",
			zap.Int64("workshop_id", workshopID),
			zap.Error(err),
		)
		return []model.AlternativeSlot{}
	}

	serviceName := "service"
	priceCents := 0
	if svc, err := s.serviceRepo.FirstActiveByWorkshop(ctx, workshopID); err != nil {
		s.logger.Warn("Failed to load representative service",
			zap.Int64("workshop_id", workshopID),
			zap.Error(err),
		)
	} else if svc != nil {
		serviceName = svc.Name
		priceCents = svc.PriceCents
	}

	alternatives := make([]model.AlternativeSlot, 0, len(slots))
	for _, slot := range slots {
		distance := slot.StartTime.Sub(requestedTime)
		after := distance >= 0
		if !after {
			distance = -distance
		}

		alternatives = append(alternatives, model.AlternativeSlot{
			SlotID:          slot.ID,
			StartTime:       slot.StartTime,
			EndTime:         slot.EndTime,
			ServiceName:     serviceName,
			PriceCents:      priceCents,
			DistanceMinutes: int(distance / time.Minute),
			Reason:          suggestionReason(distance, after),
		})
	}

	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].DistanceMinutes < alternatives[j].DistanceMinutes
	})

	if len(alternatives) > maxSuggestions {
		alternatives = alternatives[:maxSuggestions]
	}

	return alternatives
}

// IsSlotAvailable reports whether the slot exists and is still available.
// A missing slot is false, not an error.
func (s *AvailabilityService) IsSlotAvailable(ctx context.Context, slotID int64) bool {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		s.logger.Error("Failed to check slot availability",
			zap.Int64("slot_id", slotID),
			zap.Error(err),
		)
		return false
	}
	return slot != nil && slot.Status == model.SlotStatusAvailable
}

// FindAvailableSlots returns the free-slot calendar of a workshop for a
// date range, ordered by start time. Results are served from the Redis
// cache when possible.
func (s *AvailabilityService) FindAvailableSlots(ctx context.Context, workshopID int64, from, to time.Time) []model.AvailableSlotDTO {
	if cached, ok := s.calendar.Get(ctx, workshopID, from, to); ok {
		return cached
	}

	slots, err := s.slotRepo.FindAvailable(ctx, workshopID, from, to)
	if err != nil {
		s.logger.Error("Failed to query available slots",
			zap.Int64("workshop_id", workshopID),
			zap.Error(err),
		)
		return []model.AvailableSlotDTO{}
	}

	dtos := make([]model.AvailableSlotDTO, 0, len(slots))
	for _, slot := range slots {
		dtos = append(dtos, model.AvailableSlotDTO{
			SlotID:     slot.ID,
			WorkshopID: slot.WorkshopID,
			StartTime:  slot.StartTime,
			EndTime:    slot.EndTime,
		})
	}

	s.calendar.Set(ctx, workshopID, from, to, dtos)
	return dtos
}

// suggestionReason buckets the distance into a human-readable explanation.
func suggestionReason(distance time.Duration, after bool) string {
	switch {
	case distance < time.Hour:
		if after {
			return "next available slot"
		}
		return "last available slot before the requested time"
	case distance < 24*time.Hour:
		if after {
			return "available in a few hours"
		}
		return "available a few hours earlier"
	case distance < 7*24*time.Hour:
		days := int(distance / (24 * time.Hour))
		if days < 1 {
			days = 1
		}
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		if after {
			return fmt.Sprintf("available in %d %s", days, unit)
		}
		return fmt.Sprintf("available %d %s earlier", days, unit)
	default:
		return "alternative slot"
	}
}
