package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

func emitOne(t *testing.T, conn *gorm.DB, svc *Service, aggregateID uuid.UUID) {
	t.Helper()
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventLetterGenerated,
			AggregateType: enums.AggregateLetter,
			AggregateID:   aggregateID,
			Actor:         &ActorRef{UserID: aggregateID, Role: "user"},
			Data:          map[string]string{"status": "pending_review"},
		})
	})
	require.NoError(t, err)
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	aggregateID := uuid.New()

	emitOne(t, conn, svc, aggregateID)

	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventLetterGenerated, rows[0].EventType)
	assert.Equal(t, aggregateID, rows[0].AggregateID)

	envelope, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.Equal(t, rows[0].ID, envelope.EventID)
	assert.Equal(t, enums.AggregateLetter, envelope.AggregateType)
	assert.Equal(t, aggregateID.String(), envelope.Attributes()["aggregate_id"])
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, aggregateID, envelope.Actor.UserID)
	assert.JSONEq(t, `{"status":"pending_review"}`, string(envelope.Data))
}

func TestEmitRejectsMissingTxAndUnknownTypes(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{
		EventType:     enums.EventLetterGenerated,
		AggregateType: enums.AggregateLetter,
	})
	require.Error(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.OutboxEventType("letter.exploded"),
			AggregateType: enums.AggregateLetter,
		})
	})
	require.Error(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventLetterGenerated,
			AggregateType: enums.AggregateCommission,
		})
	})
	assert.ErrorContains(t, err, "belong to letter")
}

func TestEmitDefaultsAggregateFromEventType(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:   enums.EventQuotaRefilled,
			AggregateID: uuid.New(),
		})
	}))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, enums.AggregateSubscription, row.AggregateType)
}

func TestEmitRollsBackWithCallerTx(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventCommissionCreated,
			AggregateType: enums.AggregateCommission,
			AggregateID:   uuid.New(),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkFailedParksAfterMaxAttempts(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	emitOne(t, conn, NewService(repo, nil), uuid.New())

	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id := rows[0].ID

	require.NoError(t, repo.MarkFailed(context.Background(), id, errors.New("smtp down"), 2))
	rows, err = repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)

	require.NoError(t, repo.MarkFailed(context.Background(), id, errors.New("smtp still down"), 2))
	rows, err = repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	var stored models.OutboxEvent
	require.NoError(t, conn.First(&stored, "id = ?", id).Error)
	assert.Equal(t, 2, stored.AttemptCount)
	assert.NotNil(t, stored.FailedAt)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "smtp still down", *stored.LastError)
}

func TestDeletePublishedBeforeKeepsRecentAndPending(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	for i := 0; i < 3; i++ {
		emitOne(t, conn, svc, uuid.New())
	}

	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", rows[0].ID).Update("published_at", old).Error)
	require.NoError(t, repo.MarkPublished(context.Background(), rows[1].ID))

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(-30*24*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)

	pending, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, rows[2].ID, pending[0].ID)
}

func TestDecodeEnvelopeRejectsUnreadablePayloads(t *testing.T) {
	valid := Envelope{
		Version:       EnvelopeVersion,
		EventID:       uuid.New(),
		EventType:     enums.EventLetterGenerated,
		AggregateType: enums.AggregateLetter,
		AggregateID:   uuid.New(),
		Data:          json.RawMessage(`{}`),
	}
	raw, err := json.Marshal(valid)
	require.NoError(t, err)
	_, err = DecodeEnvelope(raw)
	require.NoError(t, err)

	future := valid
	future.Version = EnvelopeVersion + 1
	noID := valid
	noID.EventID = uuid.Nil
	for name, env := range map[string]Envelope{"future version": future, "missing id": noID} {
		raw, err := json.Marshal(env)
		require.NoError(t, err)
		_, err = DecodeEnvelope(raw)
		assert.ErrorIs(t, err, ErrBadEnvelope, name)
	}

	_, err = DecodeEnvelope([]byte("not json"))
	assert.ErrorIs(t, err, ErrBadEnvelope)
}

func TestDeletePublishedBeforeHonoursLimitAndCountParked(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	for i := 0; i < 4; i++ {
		emitOne(t, conn, svc, uuid.New())
	}
	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	for _, row := range rows[:3] {
		require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", row.ID).Update("published_at", old).Error)
	}
	require.NoError(t, repo.MarkFailed(context.Background(), rows[3].ID, errors.New("bad topic"), 1))

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	deleted, err := repo.DeletePublishedBefore(context.Background(), cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	deleted, err = repo.DeletePublishedBefore(context.Background(), cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	parked, err := repo.CountParked(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, parked)
}
