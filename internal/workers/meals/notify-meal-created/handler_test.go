// internal/workers/meals/notify-meal-created/handler_test.go
package notifymealcreated

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "mealbell/internal/common/errors"
	"mealbell/internal/common/feed"
	"mealbell/internal/common/logger"
	"mealbell/internal/models"
)

type mockPushSender struct {
	mu         sync.Mutex
	sent       []*models.PushNotification
	failTokens map[string]error
}

func (m *mockPushSender) Send(_ context.Context, n *models.PushNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failTokens[n.Token]; ok {
		return err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockPushSender) sentTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := make([]string, 0, len(m.sent))
	for _, n := range m.sent {
		tokens = append(tokens, n.Token)
	}
	return tokens
}

func testConfig() *Config {
	return &Config{
		ReferenceLocation: models.NewCoordinate(19.1, 72.8),
		RadiusKm:          100,
		Timeout:           5 * time.Second,
	}
}

func newTestHandler(t *testing.T, cfg *Config, store MembershipStore, push PushSender) *Handler {
	t.Helper()
	return NewHandler(cfg, store, push, nil, nil, logger.NewTestLogger(t))
}

func validEvent() *MealEvent {
	return &MealEvent{
		MealID:   "meal-1",
		FamilyID: "fam-1",
		AuthorID: "u1",
		MealType: "lunch",
		MealTime: "13:00",
	}
}

func resultFor(t *testing.T, output *Output, recipientID string) models.DispatchResult {
	t.Helper()
	for _, r := range output.Results {
		if r.RecipientID == recipientID {
			return r
		}
	}
	t.Fatalf("no result for recipient %s", recipientID)
	return models.DispatchResult{}
}

func TestExecute_MixedFamily(t *testing.T) {
	store := &mockMembershipStore{
		members: []models.Recipient{
			{ID: "u1", PushToken: "tok1", LastLocation: models.NewCoordinate(19.1, 72.8)},
			{ID: "u2", PushToken: "tok2", LastLocation: models.NewCoordinate(19.11, 72.81)},
			{ID: "u3", PushToken: "tok3", LastLocation: models.NewCoordinate(40, -70)},
			{ID: "u4", PushToken: "", LastLocation: models.NewCoordinate(19.1, 72.8)},
		},
	}
	push := &mockPushSender{}
	h := newTestHandler(t, testConfig(), store, push)

	output, err := h.Execute(context.Background(), validEvent())

	require.NoError(t, err)
	require.Len(t, output.Results, 3) // author u1 produces no result

	assert.Equal(t, models.StatusSent, resultFor(t, output, "u2").Status)
	assert.Equal(t, models.StatusSkippedOutOfRange, resultFor(t, output, "u3").Status)
	assert.Equal(t, models.StatusSkippedNoToken, resultFor(t, output, "u4").Status)

	assert.Equal(t, 1, output.Sent)
	assert.Equal(t, 0, output.Failed)
	assert.Equal(t, 2, output.Skipped)
	assert.NotEmpty(t, output.DispatchID)
	assert.Equal(t, "meal-1", output.MealID)

	require.Len(t, push.sent, 1)
	assert.Equal(t, "tok2", push.sent[0].Token)
	assert.Equal(t, "Lunch at 13:00. Will you join?", push.sent[0].Body)
	assert.Equal(t, notificationTitle, push.sent[0].Title)
}

func TestExecute_InvalidEvent(t *testing.T) {
	tests := []struct {
		name  string
		event *MealEvent
	}{
		{name: "missing family id", event: &MealEvent{AuthorID: "u1", MealType: "lunch", MealTime: "13:00"}},
		{name: "missing author id", event: &MealEvent{FamilyID: "fam-1", MealType: "lunch", MealTime: "13:00"}},
		{name: "missing meal type", event: &MealEvent{FamilyID: "fam-1", AuthorID: "u1", MealTime: "13:00"}},
		{name: "missing meal time", event: &MealEvent{FamilyID: "fam-1", AuthorID: "u1", MealType: "lunch"}},
		{name: "all fields missing", event: &MealEvent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockMembershipStore{}
			push := &mockPushSender{}
			h := newTestHandler(t, testConfig(), store, push)

			output, err := h.Execute(context.Background(), tt.event)

			require.Error(t, err)
			assert.Nil(t, output)
			assert.True(t, errs.IsCode(err, errs.ErrCodeInvalidMealEvent))

			// Fail-fast: no lookup, no sends.
			assert.Zero(t, store.calls)
			assert.Empty(t, push.sent)
		})
	}
}

func TestExecute_EmptyFamily(t *testing.T) {
	store := &mockMembershipStore{}
	push := &mockPushSender{}
	h := newTestHandler(t, testConfig(), store, push)

	output, err := h.Execute(context.Background(), validEvent())

	require.NoError(t, err)
	assert.Empty(t, output.Results)
	assert.Zero(t, output.Sent)
	assert.Empty(t, push.sent)
}

func TestExecute_AuthorOnlyFamily(t *testing.T) {
	store := &mockMembershipStore{
		members: []models.Recipient{
			{ID: "u1", PushToken: "tok1", LastLocation: models.NewCoordinate(19.1, 72.8)},
		},
	}
	push := &mockPushSender{}
	h := newTestHandler(t, testConfig(), store, push)

	output, err := h.Execute(context.Background(), validEvent())

	require.NoError(t, err)
	assert.Empty(t, output.Results)
	assert.Empty(t, push.sent)
}

func TestExecute_MembershipLookupFailure(t *testing.T) {
	store := &mockMembershipStore{err: errors.New("db down")}
	push := &mockPushSender{}
	h := newTestHandler(t, testConfig(), store, push)

	output, err := h.Execute(context.Background(), validEvent())

	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errs.IsCode(err, errs.ErrCodeMembershipLookupFailed))
	assert.True(t, errs.IsRetryable(err))
	assert.Empty(t, push.sent)
}

func TestExecute_MissingLocationSkipped(t *testing.T) {
	store := &mockMembershipStore{
		members: []models.Recipient{
			{ID: "u2", PushToken: "tok2"}, // no location at all
			{ID: "u3", PushToken: "tok3", LastLocation: &models.Coordinate{Lat: fptr(19.1)}},
		},
	}
	push := &mockPushSender{}
	h := newTestHandler(t, testConfig(), store, push)

	output, err := h.Execute(context.Background(), validEvent())

	require.NoError(t, err)
	assert.Equal(t, models.StatusSkippedOutOfRange, resultFor(t, output, "u2").Status)
	assert.Equal(t, models.StatusSkippedOutOfRange, resultFor(t, output, "u3").Status)
	assert.Empty(t, push.sent)
}

func TestExecute_PartialDeliveryFailure(t *testing.T) {
	store := &mockMembershipStore{
		members: []models.Recipient{
			{ID: "u2", PushToken: "tok2", LastLocation: models.NewCoordinate(19.1, 72.8)},
			{ID: "u3", PushToken: "tok3", LastLocation: models.NewCoordinate(19.1, 72.8)},
			{ID: "u4", PushToken: "tok4", LastLocation: models.NewCoordinate(19.1, 72.8)},
		},
	}
	push := &mockPushSender{failTokens: map[string]error{"tok3": errors.New("endpoint disabled")}}
	h := newTestHandler(t, testConfig(), store, push)

	output, err := h.Execute(context.Background(), validEvent())

	// One failed send does not fail the invocation.
	require.NoError(t, err)
	assert.Equal(t, 2, output.Sent)
	assert.Equal(t, 1, output.Failed)
	assert.Equal(t, 0, output.Skipped)

	failed := resultFor(t, output, "u3")
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, "endpoint disabled", failed.Reason)

	assert.ElementsMatch(t, []string{"tok2", "tok4"}, push.sentTokens())
}

func TestExecute_AllDeliveriesFail(t *testing.T) {
	store := &mockMembershipStore{
		members: []models.Recipient{
			{ID: "u2", PushToken: "tok2", LastLocation: models.NewCoordinate(19.1, 72.8)},
			{ID: "u3", PushToken: "tok3", LastLocation: models.NewCoordinate(19.1, 72.8)},
		},
	}
	push := &mockPushSender{failTokens: map[string]error{
		"tok2": errors.New("boom"),
		"tok3": errors.New("boom"),
	}}
	h := newTestHandler(t, testConfig(), store, push)

	output, err := h.Execute(context.Background(), validEvent())

	require.NoError(t, err)
	assert.Equal(t, 0, output.Sent)
	assert.Equal(t, 2, output.Failed)
}

func TestExecute_ClassificationIsDeterministic(t *testing.T) {
	store := &mockMembershipStore{
		members: []models.Recipient{
			{ID: "u2", PushToken: "tok2", LastLocation: models.NewCoordinate(19.11, 72.81)},
			{ID: "u3", PushToken: "tok3", LastLocation: models.NewCoordinate(40, -70)},
			{ID: "u4", PushToken: "", LastLocation: models.NewCoordinate(19.1, 72.8)},
		},
	}
	h := newTestHandler(t, testConfig(), store, &mockPushSender{})

	first, err := h.Execute(context.Background(), validEvent())
	require.NoError(t, err)
	second, err := h.Execute(context.Background(), validEvent())
	require.NoError(t, err)

	for _, id := range []string{"u2", "u3", "u4"} {
		assert.Equal(t, resultFor(t, first, id).Status, resultFor(t, second, id).Status)
	}
}

func TestExecute_DefaultRadius(t *testing.T) {
	cfg := testConfig()
	cfg.RadiusKm = 0 // falls back to the 100km default

	store := &mockMembershipStore{
		members: []models.Recipient{
			{ID: "u2", PushToken: "tok2", LastLocation: models.NewCoordinate(19.11, 72.81)},
		},
	}
	push := &mockPushSender{}
	h := newTestHandler(t, cfg, store, push)

	output, err := h.Execute(context.Background(), validEvent())

	require.NoError(t, err)
	assert.Equal(t, 1, output.Sent)
}

func TestHandleRecord_Dispatches(t *testing.T) {
	store := &mockMembershipStore{
		members: []models.Recipient{
			{ID: "u2", PushToken: "tok2", LastLocation: models.NewCoordinate(19.1, 72.8)},
		},
	}
	push := &mockPushSender{}
	h := newTestHandler(t, testConfig(), store, push)

	err := h.HandleRecord(context.Background(), &feed.Record{
		Collection: CollectionMeals,
		Key:        "meal-1",
		Data:       []byte(`{"family_id":"fam-1","created_by":"u1","type":"lunch","datetime":"13:00"}`),
	})

	require.NoError(t, err)
	require.Len(t, push.sent, 1)
	assert.Equal(t, "meal-1", push.sent[0].Data["mealId"])
}

func TestHandleRecord_EmptyData(t *testing.T) {
	store := &mockMembershipStore{}
	h := newTestHandler(t, testConfig(), store, &mockPushSender{})

	err := h.HandleRecord(context.Background(), &feed.Record{
		Collection: CollectionMeals,
		Key:        "meal-1",
	})

	require.NoError(t, err)
	assert.Zero(t, store.calls)
}

func TestHandleRecord_SchemaRejection(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "missing type", data: `{"family_id":"fam-1","created_by":"u1","datetime":"13:00"}`},
		{name: "empty family id", data: `{"family_id":"","created_by":"u1","type":"lunch","datetime":"13:00"}`},
		{name: "numeric type", data: `{"family_id":"fam-1","created_by":"u1","type":7,"datetime":"13:00"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockMembershipStore{}
			h := newTestHandler(t, testConfig(), store, &mockPushSender{})

			err := h.HandleRecord(context.Background(), &feed.Record{
				Collection: CollectionMeals,
				Key:        "meal-1",
				Data:       []byte(tt.data),
			})

			require.Error(t, err)
			assert.True(t, errs.IsCode(err, errs.ErrCodeSchemaValidationFailed))
			assert.Zero(t, store.calls)
		})
	}
}

func TestHandleRecord_MalformedJSON(t *testing.T) {
	h := newTestHandler(t, testConfig(), &mockMembershipStore{}, &mockPushSender{})

	err := h.HandleRecord(context.Background(), &feed.Record{
		Collection: CollectionMeals,
		Key:        "meal-1",
		Data:       []byte(`{not json`),
	})

	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrCodeSchemaValidationFailed))
}

func TestHandleRecord_DedupeSkipsRedelivery(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cfg := testConfig()
	cfg.DedupeEnabled = true
	cfg.DedupeTTL = 24 * time.Hour

	store := &mockMembershipStore{}
	h := NewHandler(cfg, store, &mockPushSender{}, db, nil, logger.NewTestLogger(t))

	mock.ExpectSetNX("dispatched:meal:meal-1", "1", 24*time.Hour).SetVal(false)

	err := h.HandleRecord(context.Background(), &feed.Record{
		Collection: CollectionMeals,
		Key:        "meal-1",
		Data:       []byte(`{"family_id":"fam-1","created_by":"u1","type":"lunch","datetime":"13:00"}`),
	})

	require.NoError(t, err)
	assert.Zero(t, store.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRecord_DedupeAllowsFirstDelivery(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cfg := testConfig()
	cfg.DedupeEnabled = true
	cfg.DedupeTTL = 24 * time.Hour

	store := &mockMembershipStore{}
	h := NewHandler(cfg, store, &mockPushSender{}, db, nil, logger.NewTestLogger(t))

	mock.ExpectSetNX("dispatched:meal:meal-1", "1", 24*time.Hour).SetVal(true)

	err := h.HandleRecord(context.Background(), &feed.Record{
		Collection: CollectionMeals,
		Key:        "meal-1",
		Data:       []byte(`{"family_id":"fam-1","created_by":"u1","type":"lunch","datetime":"13:00"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRecord_DedupeFailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cfg := testConfig()
	cfg.DedupeEnabled = true
	cfg.DedupeTTL = 24 * time.Hour

	store := &mockMembershipStore{}
	h := NewHandler(cfg, store, &mockPushSender{}, db, nil, logger.NewTestLogger(t))

	mock.ExpectSetNX("dispatched:meal:meal-1", "1", 24*time.Hour).SetErr(errors.New("redis down"))

	err := h.HandleRecord(context.Background(), &feed.Record{
		Collection: CollectionMeals,
		Key:        "meal-1",
		Data:       []byte(`{"family_id":"fam-1","created_by":"u1","type":"lunch","datetime":"13:00"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
}
