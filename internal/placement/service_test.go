package placement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/courtside/internal/db/repository"
	"github.com/gokatarajesh/courtside/internal/facility"
	httperrors "github.com/gokatarajesh/courtside/pkg/http/errors"
)

type fakeParticipants struct {
	byID       map[uuid.UUID]facility.Participant
	started    []uuid.UUID
	sessionErr error
}

func (f *fakeParticipants) GetMany(_ context.Context, ids []uuid.UUID) ([]facility.Participant, error) {
	out := make([]facility.Participant, len(ids))
	for i, id := range ids {
		p, ok := f.byID[id]
		if !ok {
			return nil, fmt.Errorf("participant %s: %w", id, repository.ErrNotFound)
		}
		out[i] = p
	}
	return out, nil
}

func (f *fakeParticipants) StartSessions(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	if f.sessionErr != nil {
		return f.sessionErr
	}
	f.started = append(f.started, ids...)
	return nil
}

type fakeLocations struct {
	locations []facility.Location
}

func (f *fakeLocations) ListWithCourts(context.Context) ([]facility.Location, error) {
	return f.locations, nil
}

type fakeQueueStore struct {
	waiting  []facility.QueueEntry
	enqueued []repository.EnqueueParams
	err      error
}

func (f *fakeQueueStore) ListAllWaiting(context.Context) ([]facility.QueueEntry, error) {
	return f.waiting, nil
}

func (f *fakeQueueStore) Enqueue(_ context.Context, params repository.EnqueueParams) ([]facility.QueueEntry, error) {
	if f.err != nil {
		return nil, fmt.Errorf("enqueue: %w", f.err)
	}
	f.enqueued = append(f.enqueued, params)
	entries := make([]facility.QueueEntry, len(params.Participants))
	for i, p := range params.Participants {
		entries[i] = facility.QueueEntry{
			ID:          uuid.New(),
			Participant: p,
			Position:    i + 1,
			Status:      facility.EntryWaiting,
			GroupID:     params.GroupID,
			LocationID:  params.LocationID,
		}
	}
	return entries, nil
}

type placementFixture struct {
	svc          *Service
	participants *fakeParticipants
	locations    *fakeLocations
	queue        *fakeQueueStore
}

func newPlacementFixture(locs ...facility.Location) *placementFixture {
	f := &placementFixture{
		participants: &fakeParticipants{byID: map[uuid.UUID]facility.Participant{}},
		locations:    &fakeLocations{locations: locs},
		queue:        &fakeQueueStore{},
	}
	f.svc = NewService(f.participants, f.locations, f.queue, nil, zerolog.Nop())
	return f
}

func (f *placementFixture) participant(rank facility.SkillRank) uuid.UUID {
	p := facility.Participant{ID: uuid.New(), Name: "player", Rank: rank, Gender: facility.GenderOther}
	f.participants.byID[p.ID] = p
	return p.ID
}

func TestCheckIn_SoloJoinsMatchingSolos(t *testing.T) {
	north := location("north", true, 0, 1)
	south := location("south", true, 0, 1)
	f := newPlacementFixture(north, south)

	q := &queue{}
	for i := 0; i < 3; i++ {
		q.add(south, facility.Rank3, nil)
	}
	f.queue.waiting = q.entries

	id := f.participant(facility.Rank4)
	res, err := f.svc.CheckIn(context.Background(), CheckInRequest{ParticipantIDs: []uuid.UUID{id}})
	require.NoError(t, err)

	assert.Equal(t, south.ID, res.Assignment.LocationID)
	assert.Equal(t, RuleJoinSolos, res.Assignment.Rule)
	assert.Nil(t, res.GroupID)
	require.Len(t, f.queue.enqueued, 1)
	assert.Equal(t, south.ID, f.queue.enqueued[0].LocationID)
	assert.Equal(t, []uuid.UUID{id}, f.participants.started)
}

func TestCheckIn_GroupSharesGroupID(t *testing.T) {
	north := location("north", true, 2, 0)
	f := newPlacementFixture(north)

	ids := []uuid.UUID{f.participant(facility.Rank1), f.participant(facility.Rank2), f.participant(facility.Rank3)}
	res, err := f.svc.CheckIn(context.Background(), CheckInRequest{ParticipantIDs: ids, IsGroup: true})
	require.NoError(t, err)

	require.NotNil(t, res.GroupID)
	require.Len(t, res.Entries, 3)
	for i, e := range res.Entries {
		assert.Equal(t, ids[i], e.Participant.ID)
		assert.Equal(t, *res.GroupID, *e.GroupID)
	}
	assert.ElementsMatch(t, ids, f.participants.started)
}

func TestCheckIn_Errors(t *testing.T) {
	north := location("north", true, 1, 0)
	f := newPlacementFixture(north)
	ctx := context.Background()
	a := f.participant(facility.Rank1)
	b := f.participant(facility.Rank1)

	_, err := f.svc.CheckIn(ctx, CheckInRequest{ParticipantIDs: []uuid.UUID{a, a}, IsGroup: true})
	assert.ErrorIs(t, err, ErrInvalidArrival)

	_, err = f.svc.CheckIn(ctx, CheckInRequest{ParticipantIDs: []uuid.UUID{a, b}})
	assert.ErrorIs(t, err, ErrInvalidArrival)

	_, err = f.svc.CheckIn(ctx, CheckInRequest{ParticipantIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, ErrUnknownParticipant)

	f.queue.err = repository.ErrAlreadyQueued
	_, err = f.svc.CheckIn(ctx, CheckInRequest{ParticipantIDs: []uuid.UUID{a}})
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, []uuid.UUID{a}, f.participants.started)

	f.queue.err = nil
	f.locations.locations = []facility.Location{location("closed", false, 4, 0)}
	_, err = f.svc.CheckIn(ctx, CheckInRequest{ParticipantIDs: []uuid.UUID{a}})
	assert.ErrorIs(t, err, ErrNoActiveLocations)
}

func TestCheckIn_SessionFailureStopsEnqueue(t *testing.T) {
	f := newPlacementFixture(location("north", true, 1, 0))
	f.participants.sessionErr = errors.New("db down")
	id := f.participant(facility.Rank2)

	res, err := f.svc.CheckIn(context.Background(), CheckInRequest{ParticipantIDs: []uuid.UUID{id}})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, f.participants.sessionErr)
	assert.Empty(t, f.queue.enqueued)
}

func TestHTTP_CheckIn(t *testing.T) {
	north := location("north", true, 1, 0)
	f := newPlacementFixture(north)
	h := NewHTTPHandler(f.svc, zerolog.Nop())
	id := f.participant(facility.Rank2)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.CheckIn(rec, httptest.NewRequest(http.MethodPost, "/v1/checkins", bytes.NewBufferString(body)))
		return rec
	}

	rec := post(`{"participant_ids":["` + id.String() + `"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res CheckInResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, north.ID, res.Assignment.LocationID)
	assert.Equal(t, RuleBestBalance, res.Assignment.Rule)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{`, http.StatusBadRequest, httperrors.ErrCodeInvalidRequest},
		{"empty", `{"participant_ids":[]}`, http.StatusBadRequest, httperrors.ErrCodeMissingField},
		{"unknown", `{"participant_ids":["` + uuid.NewString() + `"]}`, http.StatusNotFound, httperrors.ErrCodeParticipantUnknown},
		{"group flag on solo", `{"participant_ids":["` + id.String() + `"],"is_group":true}`, http.StatusBadRequest, httperrors.ErrCodeInvalidArrival},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(tt.body)
			assert.Equal(t, tt.status, rec.Code)
			var body httperrors.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error)
		})
	}
}
