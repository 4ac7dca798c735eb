package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/gmc453/workshop-booker/internal/apperr"
	"github.com/gmc453/workshop-booker/internal/model"
	"github.com/gmc453/workshop-booker/internal/scheduler"
	"go.uber.org/zap"
)

const (
	// DefaultSendTimeout bounds a combined two-channel dispatch. The
	// channels are third-party network calls; without a bound a slow
	// provider would stall the booking confirmation path.
	DefaultSendTimeout = 10 * time.Second

	firstReminderBefore  = 24 * time.Hour
	secondReminderBefore = 2 * time.Hour
)

// JobScheduler is the slice of the job engine the dispatcher needs for
// delayed reminders.
type JobScheduler interface {
	Enqueue(name string, job scheduler.Job)
	ScheduleAt(name string, runAt time.Time, job scheduler.Job)
}

// Dispatcher builds channel-specific messages for a booking and sends them
// over both channels concurrently, bounded by a timeout.
type Dispatcher struct {
	messenger Messenger
	texter    Texter
	jobs      JobScheduler
	logger    *zap.Logger
	timeout   time.Duration
}

func NewDispatcher(messenger Messenger, texter Texter, jobs JobScheduler, logger *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{
		messenger: messenger,
		texter:    texter,
		jobs:      jobs,
		logger:    logger,
		timeout:   timeout,
	}
}

// SendBookingConfirmation sends the confirmation message over every channel
// that has a contact value.
func (d *Dispatcher) SendBookingConfirmation(ctx context.Context, email, phone string, booking *model.Booking) error {
	subject := "Booking confirmation"
	body := fmt.Sprintf(
		"Hello %s,\n\nyour booking for %s on %s is registered and awaiting confirmation.\n\nBooking number: %d",
		booking.CustomerName, serviceName(booking), slotTimeText(booking), booking.ID,
	)
	sms := fmt.Sprintf("Your booking #%d for %s on %s is registered.",
		booking.ID, serviceName(booking), slotTimeText(booking))

	err := d.send(ctx, email, phone, subject, body, sms)
	if err != nil {
		return fmt.Errorf("send booking confirmation: %w", err)
	}

	d.logger.Info("Booking confirmation sent",
		zap.Int64("booking_id", booking.ID),
		zap.Bool("email", email != ""),
		zap.Bool("sms", phone != ""),
	)
	return nil
}

// SendBookingReminder sends the reminder message for a booking starting in
// hoursBefore hours.
func (d *Dispatcher) SendBookingReminder(ctx context.Context, email, phone string, booking *model.Booking, hoursBefore int) error {
	subject := "Booking reminder"
	body := fmt.Sprintf(
		"Hello %s,\n\nthis is a reminder: your %s appointment starts in about %d hours, on %s.\n\nBooking number: %d",
		booking.CustomerName, serviceName(booking), hoursBefore, slotTimeText(booking), booking.ID,
	)
	sms := fmt.Sprintf("Reminder: booking #%d (%s) starts in about %d hours.",
		booking.ID, serviceName(booking), hoursBefore)

	err := d.send(ctx, email, phone, subject, body, sms)
	if err != nil {
		return fmt.Errorf("send booking reminder: %w", err)
	}

	d.logger.Info("Booking reminder sent",
		zap.Int64("booking_id", booking.ID),
		zap.Int("hours_before", hoursBefore),
	)
	return nil
}

// SendBookingCancellation sends the cancellation message.
func (d *Dispatcher) SendBookingCancellation(ctx context.Context, email, phone string, booking *model.Booking) error {
	subject := "Booking cancelled"
	body := fmt.Sprintf(
		"Hello %s,\n\nyour booking #%d for %s on %s has been cancelled.",
		booking.CustomerName, booking.ID, serviceName(booking), slotTimeText(booking),
	)
	sms := fmt.Sprintf("Booking #%d (%s, %s) has been cancelled.",
		booking.ID, serviceName(booking), slotTimeText(booking))

	err := d.send(ctx, email, phone, subject, body, sms)
	if err != nil {
		return fmt.Errorf("send booking cancellation: %w", err)
	}

	d.logger.Info("Booking cancellation sent", zap.Int64("booking_id", booking.ID))
	return nil
}

// ScheduleReminders schedules the 24h and 2h reminder jobs for a booking.
// Reminder times are computed on the UTC instant of the slot start; offsets
// already in the past are skipped. The jobs live only in process memory, so
// a restart loses them.
func (d *Dispatcher) ScheduleReminders(email, phone string, booking *model.Booking) {
	if booking.Slot == nil {
		d.logger.Error("Cannot schedule reminders without slot data",
			zap.Int64("booking_id", booking.ID))
		return
	}

	start := booking.Slot.StartTime.UTC()
	now := time.Now().UTC()

	for _, offset := range []time.Duration{firstReminderBefore, secondReminderBefore} {
		runAt := start.Add(-offset)
		if !runAt.After(now) {
			continue
		}

		hoursBefore := int(offset / time.Hour)
		name := fmt.Sprintf("booking-%d-reminder-%dh", booking.ID, hoursBefore)
		d.jobs.ScheduleAt(name, runAt, func(ctx context.Context) error {
			return d.SendBookingReminder(ctx, email, phone, booking, hoursBefore)
		})
	}
}

// send fires both channel sends concurrently and waits for them under one
// timeout. Only non-empty contact fields trigger a channel; no channels
// means nothing to do.
func (d *Dispatcher) send(ctx context.Context, email, phone, subject, body, sms string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	results := make(chan error, 2)
	pending := 0

	if email != "" {
		pending++
		go func() {
			results <- d.messenger.Send(ctx, email, subject, body)
		}()
	}
	if phone != "" {
		pending++
		go func() {
			results <- d.texter.Send(ctx, phone, sms)
		}()
	}

	if pending == 0 {
		return nil
	}

	for i := 0; i < pending; i++ {
		select {
		case err := <-results:
			if err != nil {
				d.logger.Error("Notification channel failed", zap.Error(err))
				return err
			}
		case <-ctx.Done():
			d.logger.Warn("Notification dispatch timed out",
				zap.Duration("timeout", d.timeout))
			return apperr.Timeout("notification dispatch timed out")
		}
	}

	return nil
}

func serviceName(booking *model.Booking) string {
	if booking.Service != nil {
		return booking.Service.Name
	}
	return "your service"
}

func slotTimeText(booking *model.Booking) string {
	if booking.Slot != nil {
		return booking.Slot.StartTime.UTC().Format("2006-01-02 15:04")
	}
	return "the booked time"
}
