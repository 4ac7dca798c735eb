package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/gmc453/workshop-booker/internal/apperr"
	"github.com/gmc453/workshop-booker/internal/model"
	"github.com/gmc453/workshop-booker/internal/mq"
	"github.com/gmc453/workshop-booker/internal/repository"
	"github.com/gmc453/workshop-booker/internal/scheduler"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()./-]{5,19}$`)
)

// CreateBookingRequest is the command an external caller submits to reserve
// a slot. UserID is nil for anonymous callers, which the handler rejects.
type CreateBookingRequest struct {
	SlotID        int64
	ServiceID     int64
	UserID        *int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
}

type slotStore interface {
	GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error)
	BookTx(ctx context.Context, tx pgx.Tx, slotID int64) error
}

type serviceStore interface {
	GetByID(ctx context.Context, id int64) (*model.Service, error)
}

type bookingStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetByUserID(ctx context.Context, userID int64) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type dispatcher interface {
	SendBookingConfirmation(ctx context.Context, email, phone string, booking *model.Booking) error
	SendBookingCancellation(ctx context.Context, email, phone string, booking *model.Booking) error
	ScheduleReminders(email, phone string, booking *model.Booking)
}

type jobRunner interface {
	Enqueue(name string, job scheduler.Job)
}

// EventPublisher is the broker surface for booking lifecycle events. A nil
// publisher disables event publishing.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// ReservationService converts available slots into bookings. The slot
// transition and the booking insert share one transaction; the conditional
// update inside BookTx decides the single winner between concurrent
// attempts on the same slot.
type ReservationService struct {
	db          txBeginner
	slotRepo    slotStore
	serviceRepo serviceStore
	bookingRepo bookingStore
	dispatcher  dispatcher
	jobs        jobRunner
	events      EventPublisher
	logger      *zap.Logger
}

func NewReservationService(
	db txBeginner,
	slotRepo slotStore,
	serviceRepo serviceStore,
	bookingRepo bookingStore,
	dispatcher dispatcher,
	jobs jobRunner,
	events EventPublisher,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		db:          db,
		slotRepo:    slotRepo,
		serviceRepo: serviceRepo,
		bookingRepo: bookingRepo,
		dispatcher:  dispatcher,
		jobs:        jobs,
		events:      events,
		logger:      logger,
	}
}

// CreateBooking validates the request, books the slot and creates the
// booking atomically, then hands the result to the notification path. The
// returned error always carries an apperr kind the caller can act on.
func (s *ReservationService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*model.Booking, error) {
	if req.CustomerName == "" {
		return nil, apperr.Validation("customer name is required")
	}
	if !emailPattern.MatchString(req.CustomerEmail) {
		return nil, apperr.Validation("invalid email address")
	}
	if req.CustomerPhone != "" && !phonePattern.MatchString(req.CustomerPhone) {
		return nil, apperr.Validation("invalid phone number")
	}
	if req.UserID == nil {
		return nil, apperr.Auth("must be authenticated to book")
	}

	slot, err := s.slotRepo.GetByID(ctx, req.SlotID)
	if err != nil {
		return nil, s.internal(ctx, "get slot", err)
	}
	if slot == nil {
		return nil, apperr.NotFound("slot not found")
	}
	if slot.Status != model.SlotStatusAvailable {
		return nil, apperr.Conflict("slot is not available")
	}
	if !slot.StartTime.After(time.Now()) {
		return nil, apperr.Conflict("cannot book a slot in the past")
	}

	svc, err := s.serviceRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, s.internal(ctx, "get service", err)
	}
	if svc == nil {
		return nil, apperr.NotFound("service not found")
	}
	if !svc.IsActive {
		return nil, apperr.Conflict("service is not active")
	}
	if slot.Duration() < svc.RequiredDuration() {
		return nil, apperr.Conflict("slot is too short for the service")
	}

	booking := &model.Booking{
		SlotID:        req.SlotID,
		ServiceID:     req.ServiceID,
		UserID:        *req.UserID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		Status:        model.BookingStatusPending,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, s.internal(ctx, "begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.slotRepo.BookTx(ctx, tx, req.SlotID); err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) {
			// A concurrent reservation won the conditional update.
			return nil, apperr.Conflict("slot is not available")
		}
		return nil, s.internal(ctx, "book slot", err)
	}

	if err := s.bookingRepo.CreateTx(ctx, tx, booking); err != nil {
		return nil, s.internal(ctx, "create booking", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, s.internal(ctx, "commit transaction", err)
	}

	booking.Slot = slot
	booking.Slot.Status = model.SlotStatusBooked
	booking.Service = svc

	s.logger.Info("Slot booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("slot_id", req.SlotID),
		zap.Int64("service_id", req.ServiceID),
		zap.Int64("user_id", *req.UserID),
	)

	s.publishCreated(ctx, booking)
	s.jobs.Enqueue("booking-confirmation", func(jobCtx context.Context) error {
		// A notification failure never rolls the booking back; the job
		// engine logs the error and the booking stays created.
		if err := s.dispatcher.SendBookingConfirmation(jobCtx, booking.CustomerEmail, booking.CustomerPhone, booking); err != nil {
			return err
		}
		s.dispatcher.ScheduleReminders(booking.CustomerEmail, booking.CustomerPhone, booking)
		return nil
	})

	return booking, nil
}

// CancelBooking cancels a pending or confirmed booking of the given user.
// The slot stays booked: freeing cancelled slots is a workshop-management
// decision taken outside the reservation core.
func (s *ReservationService) CancelBooking(ctx context.Context, bookingID, userID int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return s.internal(ctx, "get booking", err)
	}
	if booking == nil {
		return apperr.NotFound("booking not found")
	}
	if booking.UserID != userID {
		return apperr.Auth("no permission to cancel this booking")
	}
	if booking.Status != model.BookingStatusPending && booking.Status != model.BookingStatusConfirmed {
		return apperr.Conflict("booking is not active")
	}

	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, model.BookingStatusCanceled); err != nil {
		return s.internal(ctx, "update booking status", err)
	}

	s.logger.Info("Booking canceled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("user_id", userID),
	)

	if s.events != nil {
		event := mq.BookingCancelledEvent{
			EventID:     uuid.NewString(),
			BookingID:   bookingID,
			UserID:      userID,
			CancelledAt: time.Now().UTC(),
		}
		if err := s.events.PublishJSON(ctx, mq.KeyBookingCancelled, event); err != nil {
			s.logger.Warn("Failed to publish booking.cancelled", zap.Error(err))
		}
	}

	s.jobs.Enqueue("booking-cancellation", func(jobCtx context.Context) error {
		return s.dispatcher.SendBookingCancellation(jobCtx, booking.CustomerEmail, booking.CustomerPhone, booking)
	})

	return nil
}

// GetBooking returns one booking for the caller-facing surface.
func (s *ReservationService) GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, s.internal(ctx, "get booking", err)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking not found")
	}
	return booking, nil
}

// GetUserBookings lists all bookings of a user, newest first.
func (s *ReservationService) GetUserBookings(ctx context.Context, userID int64) ([]*model.Booking, error) {
	bookings, err := s.bookingRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, "get user bookings", err)
	}
	return bookings, nil
}

func (s *ReservationService) publishCreated(ctx context.Context, booking *model.Booking) {
	if s.events == nil {
		return
	}

	event := mq.BookingCreatedEvent{
		EventID:    uuid.NewString(),
		BookingID:  booking.ID,
		SlotID:     booking.SlotID,
		ServiceID:  booking.ServiceID,
		UserID:     booking.UserID,
		WorkshopID: booking.Slot.WorkshopID,
		StartTime:  booking.Slot.StartTime,
		EndTime:    booking.Slot.EndTime,
		CreatedAt:  booking.CreatedAt,
	}
	if err := s.events.PublishJSON(ctx, mq.KeyBookingCreated, event); err != nil {
		s.logger.Warn("Failed to publish booking.created", zap.Error(err))
	}
}

// internal logs the root cause with context and collapses it to the generic
// failure callers see. Database details never cross the service boundary.
func (s *ReservationService) internal(_ context.Context, op string, err error) error {
	s.logger.Error("Booking creation failed",
		zap.String("op", op),
		zap.Error(err),
	)
	return apperr.Internal("booking creation failed", err)
}
