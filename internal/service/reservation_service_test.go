package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gmc453/workshop-booker/internal/apperr"
	"github.com/gmc453/workshop-booker/internal/model"
	"github.com/gmc453/workshop-booker/internal/repository"
	"github.com/gmc453/workshop-booker/internal/scheduler"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { t.rolledBack = true; return nil }

type fakeDB struct {
	beginErr error
}

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return &fakeTx{}, nil
}

type fakeSlotStore struct {
	mu      sync.Mutex
	slots   map[int64]*model.AvailableSlot
	getErr  error
	bookErr error
}

func (f *fakeSlotStore) GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[id]
	if !ok {
		return nil, nil
	}
	copied := *slot
	return &copied, nil
}

// BookTx mimics the conditional UPDATE: only one caller transitions the
// slot out of available, everyone else gets ErrSlotUnavailable.
func (f *fakeSlotStore) BookTx(ctx context.Context, tx pgx.Tx, slotID int64) error {
	if f.bookErr != nil {
		return f.bookErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[slotID]
	if !ok || slot.Status != model.SlotStatusAvailable {
		return repository.ErrSlotUnavailable
	}
	slot.Status = model.SlotStatusBooked
	return nil
}

type fakeServiceStore struct {
	services map[int64]*model.Service
	err      error
}

func (f *fakeServiceStore) GetByID(ctx context.Context, id int64) (*model.Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	svc, ok := f.services[id]
	if !ok {
		return nil, nil
	}
	return svc, nil
}

type fakeBookingStore struct {
	mu       sync.Mutex
	nextID   int64
	created  []*model.Booking
	existing map[int64]*model.Booking
	statuses map[int64]model.BookingStatus
	err      error
}

func (f *fakeBookingStore) CreateTx(ctx context.Context, tx pgx.Tx, booking *model.Booking) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	booking.ID = f.nextID
	booking.CreatedAt = time.Now()
	f.created = append(f.created, booking)
	return nil
}

func (f *fakeBookingStore) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.existing[id], nil
}

func (f *fakeBookingStore) GetByUserID(ctx context.Context, userID int64) ([]*model.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*model.Booking
	for _, b := range f.existing {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = map[int64]model.BookingStatus{}
	}
	f.statuses[id] = status
	return nil
}

type fakeDispatcher struct {
	mu            sync.Mutex
	confirmations int
	cancellations int
	reminders     int
	confirmErr    error
}

func (f *fakeDispatcher) SendBookingConfirmation(ctx context.Context, email, phone string, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations++
	return f.confirmErr
}

func (f *fakeDispatcher) SendBookingCancellation(ctx context.Context, email, phone string, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancellations++
	return nil
}

func (f *fakeDispatcher) ScheduleReminders(email, phone string, booking *model.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders++
}

// inlineJobs runs enqueued jobs synchronously so tests observe the
// notification side effects deterministically.
type inlineJobs struct{}

func (inlineJobs) Enqueue(name string, job scheduler.Job) {
	_ = job(context.Background())
}

func userID(id int64) *int64 { return &id }

func availableSlot(id int64, start time.Time, minutes int) *model.AvailableSlot {
	return &model.AvailableSlot{
		ID:         id,
		WorkshopID: 1,
		StartTime:  start,
		EndTime:    start.Add(time.Duration(minutes) * time.Minute),
		Status:     model.SlotStatusAvailable,
	}
}

func activeService(id int64, minutes int) *model.Service {
	return &model.Service{
		ID:              id,
		WorkshopID:      1,
		Name:            "Oil change",
		PriceCents:      15000,
		DurationMinutes: minutes,
		IsActive:        true,
	}
}

type reservationFixture struct {
	svc        *ReservationService
	slots      *fakeSlotStore
	services   *fakeServiceStore
	bookings   *fakeBookingStore
	dispatcher *fakeDispatcher
}

func newReservationFixture() *reservationFixture {
	slots := &fakeSlotStore{slots: map[int64]*model.AvailableSlot{
		1: availableSlot(1, time.Now().Add(48*time.Hour), 90),
	}}
	services := &fakeServiceStore{services: map[int64]*model.Service{
		1: activeService(1, 60),
	}}
	bookings := &fakeBookingStore{existing: map[int64]*model.Booking{}}
	disp := &fakeDispatcher{}

	svc := NewReservationService(&fakeDB{}, slots, services, bookings, disp, inlineJobs{}, nil, zap.NewNop())
	return &reservationFixture{svc: svc, slots: slots, services: services, bookings: bookings, dispatcher: disp}
}

func validRequest() CreateBookingRequest {
	return CreateBookingRequest{
		SlotID:        1,
		ServiceID:     1,
		UserID:        userID(10),
		CustomerName:  "Jan Kowalski",
		CustomerEmail: "jan@example.com",
		CustomerPhone: "+48123456789",
		Notes:         "squeaky brakes",
	}
}

func TestCreateBookingSuccess(t *testing.T) {
	f := newReservationFixture()
	before := time.Now()

	booking, err := f.svc.CreateBooking(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, booking.Status)
	assert.WithinRange(t, booking.CreatedAt, before, time.Now())
	assert.Equal(t, int64(10), booking.UserID)
	require.NotNil(t, booking.Slot)
	assert.Equal(t, model.SlotStatusBooked, booking.Slot.Status)

	assert.Equal(t, 1, f.dispatcher.confirmations)
	assert.Equal(t, 1, f.dispatcher.reminders)
}

func TestCreateBookingValidationOrder(t *testing.T) {
	f := newReservationFixture()

	cases := []struct {
		name    string
		mutate  func(*CreateBookingRequest)
		kind    apperr.Kind
		message string
	}{
		{"missing name", func(r *CreateBookingRequest) { r.CustomerName = "" }, apperr.KindValidation, "customer name is required"},
		{"bad email", func(r *CreateBookingRequest) { r.CustomerEmail = "not-an-email" }, apperr.KindValidation, "invalid email address"},
		{"bad phone", func(r *CreateBookingRequest) { r.CustomerPhone = "abc" }, apperr.KindValidation, "invalid phone number"},
		{"anonymous", func(r *CreateBookingRequest) { r.UserID = nil }, apperr.KindAuth, "must be authenticated to book"},
		{"unknown slot", func(r *CreateBookingRequest) { r.SlotID = 99 }, apperr.KindNotFound, "slot not found"},
		{"unknown service", func(r *CreateBookingRequest) { r.ServiceID = 99 }, apperr.KindNotFound, "service not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			_, err := f.svc.CreateBooking(context.Background(), req)

			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestInvalidEmailNeverTouchesStores(t *testing.T) {
	f := newReservationFixture()
	f.slots.getErr = errors.New("store must not be called")

	req := validRequest()
	req.CustomerEmail = "not-an-email"

	_, err := f.svc.CreateBooking(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, f.bookings.created)
}

func TestCreateBookingPastSlot(t *testing.T) {
	f := newReservationFixture()
	f.slots.slots[1] = availableSlot(1, time.Now().Add(-time.Hour), 90)

	_, err := f.svc.CreateBooking(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "past")
}

func TestCreateBookingInactiveService(t *testing.T) {
	f := newReservationFixture()
	f.services.services[1].IsActive = false

	_, err := f.svc.CreateBooking(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "not active")
}

func TestCreateBookingSlotTooShort(t *testing.T) {
	f := newReservationFixture()
	f.slots.slots[1] = availableSlot(1, time.Now().Add(48*time.Hour), 60)
	f.services.services[1] = activeService(1, 90)

	_, err := f.svc.CreateBooking(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "too short")
}

func TestSecondBookingOnSameSlotConflicts(t *testing.T) {
	f := newReservationFixture()

	_, err := f.svc.CreateBooking(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "not available")
}

func TestConcurrentBookingsHaveOneWinner(t *testing.T) {
	f := newReservationFixture()

	const attempts = 16
	var successes, conflicts atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			req := validRequest()
			req.UserID = userID(100 + n)
			_, err := f.svc.CreateBooking(context.Background(), req)
			switch {
			case err == nil:
				successes.Add(1)
			case apperr.KindOf(err) == apperr.KindConflict:
				conflicts.Add(1)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes.Load(), "exactly one reservation must win")
	assert.Equal(t, int64(attempts-1), conflicts.Load())
	assert.Len(t, f.bookings.created, 1)
}

func TestPersistenceFailureCollapsesToInternal(t *testing.T) {
	f := newReservationFixture()
	f.bookings.err = errors.New("connection reset by peer")

	_, err := f.svc.CreateBooking(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "booking creation failed")
}

func TestConfirmationFailureDoesNotFailBooking(t *testing.T) {
	f := newReservationFixture()
	f.dispatcher.confirmErr = errors.New("provider unavailable")

	booking, err := f.svc.CreateBooking(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, booking.Status)
	// Reminders are only scheduled after a successful confirmation.
	assert.Equal(t, 0, f.dispatcher.reminders)
}

func TestCancelBooking(t *testing.T) {
	f := newReservationFixture()
	f.bookings.existing[5] = &model.Booking{
		ID:     5,
		UserID: 10,
		Status: model.BookingStatusPending,
	}

	err := f.svc.CancelBooking(context.Background(), 5, 10)

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCanceled, f.bookings.statuses[5])
	assert.Equal(t, 1, f.dispatcher.cancellations)
}

func TestCancelBookingWrongUser(t *testing.T) {
	f := newReservationFixture()
	f.bookings.existing[5] = &model.Booking{ID: 5, UserID: 10, Status: model.BookingStatusPending}

	err := f.svc.CancelBooking(context.Background(), 5, 11)

	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestCancelBookingNotActive(t *testing.T) {
	f := newReservationFixture()
	f.bookings.existing[5] = &model.Booking{ID: 5, UserID: 10, Status: model.BookingStatusCompleted}

	err := f.svc.CancelBooking(context.Background(), 5, 10)

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestGetUserBookings(t *testing.T) {
	f := newReservationFixture()
	f.bookings.existing[1] = &model.Booking{ID: 1, UserID: 10, Status: model.BookingStatusPending}
	f.bookings.existing[2] = &model.Booking{ID: 2, UserID: 11, Status: model.BookingStatusPending}

	got, err := f.svc.GetUserBookings(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestGetBookingNotFound(t *testing.T) {
	f := newReservationFixture()

	_, err := f.svc.GetBooking(context.Background(), 404)

	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCancelBookingNotFound(t *testing.T) {
	f := newReservationFixture()

	err := f.svc.CancelBooking(context.Background(), 404, 10)

	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
