package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/courtside/internal/db/repository"
	"github.com/gokatarajesh/courtside/internal/facility"
	"github.com/gokatarajesh/courtside/internal/match/queue"
)

type fakeCourts struct {
	courts   map[uuid.UUID]facility.Court
	inactive map[uuid.UUID]bool
}

func (f *fakeCourts) GetCourt(_ context.Context, id uuid.UUID) (facility.Court, bool, error) {
	c, ok := f.courts[id]
	if !ok {
		return facility.Court{}, false, repository.ErrNotFound
	}
	return c, !f.inactive[c.LocationID], nil
}

type fakeQueue struct {
	entries []facility.QueueEntry
}

func (f *fakeQueue) ListWaiting(_ context.Context, locationID uuid.UUID) ([]facility.QueueEntry, error) {
	return facility.WaitingAt(f.entries, locationID), nil
}

type mockMatchStore struct {
	mock.Mock
}

func (m *mockMatchStore) StartMatch(ctx context.Context, p repository.StartMatchParams) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockMatchStore) FinishMatch(ctx context.Context, matchID uuid.UUID, at time.Time) (uuid.UUID, error) {
	args := m.Called(ctx, matchID, at)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type fakeSessions struct {
	started []uuid.UUID
	err     error
}

func (f *fakeSessions) StartSessions(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, ids...)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type serviceFixture struct {
	svc      *Service
	q        *queueBuilder
	queue    *fakeQueue
	courts   *fakeCourts
	matches  *mockMatchStore
	sessions *fakeSessions
	events   *recordingPublisher
	holds    *queue.Manager
	store    *SuggestionStore
	metrics  *Metrics
	redis    *redis.Client
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &serviceFixture{
		q:        newQueue(),
		courts:   &fakeCourts{courts: map[uuid.UUID]facility.Court{}, inactive: map[uuid.UUID]bool{}},
		matches:  new(mockMatchStore),
		sessions: &fakeSessions{},
		events:   &recordingPublisher{},
		holds:    queue.NewManager(client, zerolog.Nop(), time.Minute, 5*time.Second),
		store:    NewSuggestionStore(client, time.Minute, zerolog.Nop()),
		metrics:  NewMetrics(nil),
		redis:    client,
	}
	f.queue = &fakeQueue{}
	f.svc = NewService(Deps{
		Courts:      f.courts,
		Queue:       f.queue,
		Matches:     f.matches,
		Sessions:    f.sessions,
		Holds:       f.holds,
		Suggestions: f.store,
		Allocator:   newTestAllocator(newStubDirectory(), Options{}),
		Events:      f.events,
		Metrics:     f.metrics,
	}, func() time.Time { return testNow }, zerolog.Nop())
	return f
}

func (f *serviceFixture) court(status facility.CourtStatus) facility.Court {
	c := facility.Court{ID: uuid.New(), LocationID: f.q.location, Name: fmt.Sprintf("Court %d", len(f.courts.courts)+1), Status: status}
	f.courts.courts[c.ID] = c
	return c
}

func (f *serviceFixture) fill(n int) {
	for i := 0; i < n; i++ {
		f.q.add(facility.Rank2, facility.GenderFemale, nil)
	}
	f.queue.entries = f.q.entries
}

func TestService_SuggestForCourt_HoldsAndStores(t *testing.T) {
	f := newServiceFixture(t)
	f.fill(5)
	court := f.court(facility.CourtAvailable)
	ctx := context.Background()

	sug, err := f.svc.SuggestForCourt(ctx, court.ID)
	require.NoError(t, err)
	require.NotNil(t, sug)
	assert.Equal(t, []int{1, 2, 3, 4}, positions(sug, f.q))

	held, err := f.holds.Held(ctx, facility.ParticipantIDs(f.q.entries))
	require.NoError(t, err)
	assert.Len(t, held, 4)
	assert.False(t, held[f.q.entries[4].Participant.ID])

	stored, err := f.store.ForCourt(ctx, court.ID)
	require.NoError(t, err)
	assert.Equal(t, sug.ID, stored.ID)

	assert.Equal(t, []string{EventSuggested}, f.events.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Suggestions.WithLabelValues(string(BranchStandard), "none")))

	// pending suggestion is returned as-is
	again, err := f.svc.SuggestForCourt(ctx, court.ID)
	require.NoError(t, err)
	assert.Equal(t, sug.ID, again.ID)
	assert.Len(t, f.events.types(), 1)
}

func TestService_SuggestForCourt_NoDoubleBooking(t *testing.T) {
	f := newServiceFixture(t)
	f.fill(8)
	first := f.court(facility.CourtAvailable)
	second := f.court(facility.CourtAvailable)
	ctx := context.Background()

	a, err := f.svc.SuggestForCourt(ctx, first.ID)
	require.NoError(t, err)
	b, err := f.svc.SuggestForCourt(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, b)

	assert.Equal(t, []int{1, 2, 3, 4}, positions(a, f.q))
	assert.Equal(t, []int{5, 6, 7, 8}, positions(b, f.q))

	// nobody left for a third court
	third := f.court(facility.CourtAvailable)
	c, err := f.svc.SuggestForCourt(ctx, third.ID)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NoMatch))
}

func TestService_SuggestForCourt_Errors(t *testing.T) {
	f := newServiceFixture(t)
	f.fill(4)
	ctx := context.Background()

	_, err := f.svc.SuggestForCourt(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCourtNotFound)

	occupied := f.court(facility.CourtOccupied)
	_, err = f.svc.SuggestForCourt(ctx, occupied.ID)
	assert.ErrorIs(t, err, ErrCourtUnavailable)

	court := f.court(facility.CourtAvailable)
	unlock, err := f.holds.LockLocation(ctx, court.LocationID)
	require.NoError(t, err)
	_, err = f.svc.SuggestForCourt(ctx, court.ID)
	assert.ErrorIs(t, err, ErrLocationBusy)
	require.NoError(t, unlock())

	f.courts.inactive[court.LocationID] = true
	_, err = f.svc.SuggestForCourt(ctx, court.ID)
	assert.ErrorIs(t, err, ErrCourtUnavailable)
}

func TestService_Accept(t *testing.T) {
	f := newServiceFixture(t)
	f.fill(4)
	court := f.court(facility.CourtAvailable)
	ctx := context.Background()

	sug, err := f.svc.SuggestForCourt(ctx, court.ID)
	require.NoError(t, err)

	f.matches.On("StartMatch", mock.Anything, mock.MatchedBy(func(p repository.StartMatchParams) bool {
		return p.CourtID == court.ID &&
			p.LocationID == court.LocationID &&
			assert.ObjectsAreEqual(sug.EntryIDs, p.EntryIDs) &&
			p.Branch == string(BranchStandard) &&
			p.PriorityScore == sug.PriorityScore &&
			p.StartedAt.Equal(testNow)
	})).Return(nil)

	m, err := f.svc.Accept(ctx, sug.ID)
	require.NoError(t, err)
	assert.Equal(t, court.ID, m.CourtID)
	assert.Equal(t, sug.ParticipantIDs(), m.ParticipantIDs)
	assert.Equal(t, sug.ParticipantIDs(), f.sessions.started)
	f.matches.AssertExpectations(t)

	held, err := f.holds.Held(ctx, sug.ParticipantIDs())
	require.NoError(t, err)
	assert.Empty(t, held)

	_, err = f.store.Get(ctx, sug.ID)
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
	assert.Equal(t, []string{EventSuggested, EventStarted}, f.events.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Outcomes.WithLabelValues("accepted")))
}

func TestService_Accept_Stale(t *testing.T) {
	f := newServiceFixture(t)
	f.fill(4)
	court := f.court(facility.CourtAvailable)
	ctx := context.Background()

	sug, err := f.svc.SuggestForCourt(ctx, court.ID)
	require.NoError(t, err)

	f.matches.On("StartMatch", mock.Anything, mock.Anything).
		Return(fmt.Errorf("start match: %w", repository.ErrQueueChanged))

	_, err = f.svc.Accept(ctx, sug.ID)
	assert.ErrorIs(t, err, ErrSuggestionStale)

	held, err := f.holds.Held(ctx, sug.ParticipantIDs())
	require.NoError(t, err)
	assert.Empty(t, held)

	_, err = f.svc.Accept(ctx, sug.ID)
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
}

func TestService_Accept_SessionFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.fill(4)
	court := f.court(facility.CourtAvailable)
	ctx := context.Background()

	sug, err := f.svc.SuggestForCourt(ctx, court.ID)
	require.NoError(t, err)

	f.sessions.err = errors.New("db down")
	m, err := f.svc.Accept(ctx, sug.ID)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, f.sessions.err)
	f.matches.AssertNotCalled(t, "StartMatch", mock.Anything, mock.Anything)

	// suggestion survives for a retry
	_, err = f.store.Get(ctx, sug.ID)
	require.NoError(t, err)

	f.sessions.err = nil
	f.matches.On("StartMatch", mock.Anything, mock.Anything).Return(nil)
	_, err = f.svc.Accept(ctx, sug.ID)
	require.NoError(t, err)
}

func TestService_Reject(t *testing.T) {
	f := newServiceFixture(t)
	f.fill(4)
	court := f.court(facility.CourtAvailable)
	ctx := context.Background()

	sug, err := f.svc.SuggestForCourt(ctx, court.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Reject(ctx, sug.ID))

	held, err := f.holds.Held(ctx, sug.ParticipantIDs())
	require.NoError(t, err)
	assert.Empty(t, held)

	pending, err := f.store.ForCourt(ctx, court.ID)
	require.NoError(t, err)
	assert.Nil(t, pending)

	// the same four are available again
	next, err := f.svc.SuggestForCourt(ctx, court.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, sug.EntryIDs, next.EntryIDs)
	assert.NotEqual(t, sug.ID, next.ID)

	assert.ErrorIs(t, f.svc.Reject(ctx, uuid.New()), ErrSuggestionNotFound)
}

func TestService_Finish(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	matchID := uuid.New()
	courtID := uuid.New()

	f.matches.On("FinishMatch", mock.Anything, matchID, testNow).Return(courtID, nil).Once()
	require.NoError(t, f.svc.Finish(ctx, matchID))
	assert.Equal(t, []string{EventFinished}, f.events.types())

	f.matches.On("FinishMatch", mock.Anything, matchID, testNow).
		Return(uuid.Nil, fmt.Errorf("finish match: %w", repository.ErrNotFound)).Once()
	assert.ErrorIs(t, f.svc.Finish(ctx, matchID), ErrMatchNotFound)

	boom := errors.New("boom")
	f.matches.On("FinishMatch", mock.Anything, matchID, testNow).Return(uuid.Nil, boom).Once()
	assert.ErrorIs(t, f.svc.Finish(ctx, matchID), boom)
	f.matches.AssertExpectations(t)
}
