package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"guide-booking/internal/models"
	"guide-booking/pkg/response"
)

var testNow = time.Date(2026, 10, 12, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu           sync.Mutex
	users        map[string]*models.User
	services     map[string]*models.Service
	availability map[string]*models.Availability
	bookings     map[string]*models.Booking
	ratings      map[string]models.RatingAggregate
	achievements map[string][]models.Achievement

	// called with the lock released, right before a transition is applied
	beforeTransition func(id string)
	failTransition   map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:          map[string]*models.User{},
		services:       map[string]*models.Service{},
		availability:   map[string]*models.Availability{},
		bookings:       map[string]*models.Booking{},
		ratings:        map[string]models.RatingAggregate{},
		achievements:   map[string][]models.Achievement{},
		failTransition: map[string]error{},
	}
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	c.Achievements = append([]models.Achievement(nil), b.Achievements...)
	c.RescheduleHistory = append([]models.RescheduleEntry(nil), b.RescheduleHistory...)
	if b.Rating != nil {
		r := *b.Rating
		c.Rating = &r
	}
	if b.Feedback != nil {
		f := *b.Feedback
		c.Feedback = &f
	}
	if b.Cancellation != nil {
		x := *b.Cancellation
		c.Cancellation = &x
	}
	return &c
}

func active(b *models.Booking) bool {
	return b.Status != models.BookingCancelled && b.Status != models.BookingNoShow
}

func (m *memStore) addUser(id string, role models.Role) {
	m.users[id] = &models.User{ID: id, Role: role, Email: id + "@example.com", Name: id}
}

func (m *memStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memStore) GetService(_ context.Context, id string) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *memStore) CreateAvailability(_ context.Context, a *models.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.availability[a.GuideID]; ok {
		return response.Detail(response.ErrConflict, "availability already exists")
	}
	c := *a
	m.availability[a.GuideID] = &c
	return nil
}

func (m *memStore) GetAvailability(_ context.Context, guideID string) (*models.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.availability[guideID]
	if !ok {
		return nil, response.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (m *memStore) ReplaceAvailability(_ context.Context, a *models.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.availability[a.GuideID]; !ok {
		return response.ErrNotFound
	}
	c := *a
	m.availability[a.GuideID] = &c
	return nil
}

func (m *memStore) slotTaken(guideID string, at time.Time, exceptID string) bool {
	for _, b := range m.bookings {
		if b.ID != exceptID && b.GuideID == guideID && b.DateAndTime.Equal(at) && active(b) {
			return true
		}
	}
	return false
}

func (m *memStore) CreateBooking(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotTaken(b.GuideID, b.DateAndTime, "") {
		return response.Detail(response.ErrConflict, "guide already booked at this time")
	}
	m.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (m *memStore) put(b *models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = cloneBooking(b)
}

func (m *memStore) get(id string) *models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneBooking(m.bookings[id])
}

func (m *memStore) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (m *memStore) ListBookingsByUser(_ context.Context, userID string) ([]*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Booking
	for _, b := range m.bookings {
		if b.IsParticipant(userID) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (m *memStore) ListBookedTimes(_ context.Context, guideID string, from, to time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Time
	for _, b := range m.bookings {
		if b.GuideID == guideID && active(b) && !b.DateAndTime.Before(from) && b.DateAndTime.Before(to) {
			out = append(out, b.DateAndTime)
		}
	}
	return out, nil
}

func (m *memStore) ListSweepCandidates(_ context.Context) ([]*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Booking
	for _, b := range m.bookings {
		switch b.Status {
		case models.BookingPending, models.BookingConfirmed, models.BookingUpcoming:
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (m *memStore) ListMissingMeetingLinks(_ context.Context, after time.Time) ([]*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Booking
	for _, b := range m.bookings {
		if (b.Status == models.BookingConfirmed || b.Status == models.BookingUpcoming) && b.MeetingLink == "" && b.DateAndTime.After(after) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (m *memStore) TransitionBooking(_ context.Context, id string, from, to models.BookingStatus, patch models.BookingPatch) (*models.Booking, error) {
	if m.beforeTransition != nil {
		m.beforeTransition(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failTransition[id]; ok {
		return nil, err
	}

	b, ok := m.bookings[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	if b.Status != from {
		return nil, response.Detail(response.ErrConflict, "booking no longer in expected state")
	}
	if patch.DateAndTime != nil && m.slotTaken(b.GuideID, *patch.DateAndTime, b.ID) {
		return nil, response.Detail(response.ErrConflict, "guide already booked at this time")
	}

	applyPatch(b, patch)
	b.Status = to
	b.UpdatedAt = testNow
	if len(patch.Achievements) > 0 {
		m.achievements[b.LearnerID] = append(m.achievements[b.LearnerID], patch.Achievements...)
	}

	return cloneBooking(b), nil
}

func (m *memStore) SetMeetingLink(_ context.Context, id, link string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return false, response.ErrNotFound
	}
	if b.MeetingLink != "" {
		return false, nil
	}
	b.MeetingLink = link
	return true, nil
}

func (m *memStore) RateBooking(_ context.Context, id string, rating models.Rating) (*models.Booking, *models.RatingAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil, response.ErrNotFound
	}
	if b.Rating != nil {
		return nil, nil, response.Detail(response.ErrConflict, "booking already rated")
	}
	r := rating
	b.Rating = &r

	agg := m.ratings[b.GuideID]
	agg.GuideID = b.GuideID
	agg.Total += float64(rating.Score)
	agg.Count++
	agg.Average = agg.Total / float64(agg.Count)
	m.ratings[b.GuideID] = agg

	return cloneBooking(b), &agg, nil
}

func (m *memStore) SetFeedback(_ context.Context, id string, fb models.Feedback) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	if b.Rating == nil || b.Feedback != nil {
		return nil, response.Detail(response.ErrConflict, "feedback not accepted")
	}
	f := fb
	b.Feedback = &f
	return cloneBooking(b), nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

type fakeMeetings struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeMeetings) CreateMeeting(_ context.Context, start time.Time, minutes int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "https://meet.test/" + start.UTC().Format("20060102T1504"), nil
}

func (f *fakeMeetings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sentEmail struct {
	To, Name, JoinURL, Date, Time string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeMailer) SendBookingConfirmation(_ context.Context, to, name, joinURL, date, clock string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{To: to, Name: name, JoinURL: joinURL, Date: date, Time: clock})
	return nil
}

func (f *fakeMailer) emails() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

type fixture struct {
	svc      *Service
	store    *memStore
	locker   *fakeLocker
	meetings *fakeMeetings
	mailer   *fakeMailer
}

var errBoom = errors.New("boom")

func newFixture() *fixture {
	store := newMemStore()
	store.addUser("guide-1", models.RoleGuide)
	store.addUser("guide-2", models.RoleGuide)
	store.addUser("learner-1", models.RoleLearner)
	store.addUser("learner-2", models.RoleLearner)
	store.addUser("admin-1", models.RoleAdmin)

	store.services["paid"] = &models.Service{ID: "paid", GuideID: "guide-1", Title: "Career chat", Price: models.NumericPrice(40), DurationMinutes: 60}
	store.services["free"] = &models.Service{ID: "free", GuideID: "guide-1", Title: "Intro", Price: models.TextPrice("Free"), DurationMinutes: 30}

	f := &fixture{
		store:    store,
		locker:   newFakeLocker(),
		meetings: &fakeMeetings{},
		mailer:   &fakeMailer{},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(log, store, f.locker, f.meetings, f.mailer, Options{
		Now: func() time.Time { return testNow },
	})

	return f
}

// seed stores a booking for learner-1 with guide-1.
func (f *fixture) seed(id string, status models.BookingStatus, at time.Time, price models.Price) *models.Booking {
	b := &models.Booking{
		ID:              id,
		ServiceID:       "paid",
		LearnerID:       "learner-1",
		GuideID:         "guide-1",
		DateAndTime:     at,
		DurationMinutes: 60,
		Price:           price,
		Status:          status,
		CreatedAt:       testNow.Add(-48 * time.Hour),
		UpdatedAt:       testNow.Add(-48 * time.Hour),
	}
	f.store.put(b)
	return b
}

// applyPatch mirrors the transition UPDATE for the in-memory store.
func applyPatch(b *models.Booking, p models.BookingPatch) {
	if p.DateAndTime != nil {
		b.DateAndTime = *p.DateAndTime
	}
	if p.MeetingLink != nil {
		b.MeetingLink = *p.MeetingLink
	}
	if p.SessionNotes != nil {
		b.SessionNotes = *p.SessionNotes
	}
	if p.Reschedule != nil {
		b.RescheduleHistory = append(b.RescheduleHistory, *p.Reschedule)
	}
	if p.Cancellation != nil {
		c := *p.Cancellation
		b.Cancellation = &c
	}
	if len(p.Achievements) > 0 {
		b.Achievements = append(b.Achievements, p.Achievements...)
	}
	if p.SessionStartedAt != nil {
		b.SessionStartedAt = p.SessionStartedAt
	}
	if p.SessionEndedAt != nil {
		b.SessionEndedAt = p.SessionEndedAt
	}
	if p.PaidAt != nil {
		b.PaidAt = p.PaidAt
	}
}
