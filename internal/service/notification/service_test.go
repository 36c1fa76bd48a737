package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilecare/clinic-api/internal/model"
)

type fakeNotificationRepo struct {
	created   []*model.Notification
	createErr error
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range r.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	for _, n := range r.created {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return errors.New("not found")
}

type fakeBroker struct {
	published  []string
	publishErr error
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, channel)
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not used")
}

func (b *fakeBroker) Close() error { return nil }

func TestNotify(t *testing.T) {
	repo := &fakeNotificationRepo{}
	broker := &fakeBroker{}
	logger := zerolog.Nop()
	svc := NewService(repo, broker, &logger)
	userID := uuid.New()

	err := svc.Notify(context.Background(), userID, "appointment canceled", "/appointments/x")

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, userID, repo.created[0].UserID)
	assert.False(t, repo.created[0].IsRead)
	assert.Len(t, broker.published, 1)
}

func TestNotifyBrokerFailureTolerated(t *testing.T) {
	repo := &fakeNotificationRepo{}
	broker := &fakeBroker{publishErr: errors.New("circuit open")}
	logger := zerolog.Nop()
	svc := NewService(repo, broker, &logger)

	// The row is the source of truth; fan-out failure is only a warning.
	err := svc.Notify(context.Background(), uuid.New(), "msg", "")

	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
}

func TestNotifyWithoutBroker(t *testing.T) {
	repo := &fakeNotificationRepo{}
	logger := zerolog.Nop()
	svc := NewService(repo, nil, &logger)

	err := svc.Notify(context.Background(), uuid.New(), "msg", "")

	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
}

func TestNotifyRowFailure(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: errors.New("insert failed")}
	broker := &fakeBroker{}
	logger := zerolog.Nop()
	svc := NewService(repo, broker, &logger)

	err := svc.Notify(context.Background(), uuid.New(), "msg", "")

	require.Error(t, err)
	// Nothing is published for a notification that was never recorded.
	assert.Empty(t, broker.published)
}

func TestMarkRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	logger := zerolog.Nop()
	svc := NewService(repo, nil, &logger)
	userID := uuid.New()

	require.NoError(t, svc.Notify(context.Background(), userID, "msg", ""))
	n := repo.created[0]

	require.NoError(t, svc.MarkRead(context.Background(), n.ID, userID))
	assert.True(t, n.IsRead)

	list, err := svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
