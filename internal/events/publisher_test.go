package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestPublishAppendsToStream(t *testing.T) {
	_, client := newTestRedis(t)
	p := NewPublisher(client, 0)

	err := p.Publish(context.Background(), AuditStream, UserRegistered, UserRegisteredEvent{UserID: 42, Email: "ana@x.com"})
	require.NoError(t, err)

	msgs, err := client.XRange(context.Background(), AuditStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var ev struct {
		Type string              `json:"type"`
		Data UserRegisteredEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["event"].(string)), &ev))
	assert.Equal(t, UserRegistered, ev.Type)
	assert.Equal(t, int64(42), ev.Data.UserID)
}

func TestAuditRecordLogsFailures(t *testing.T) {
	mr, client := newTestRedis(t)
	var logs bytes.Buffer
	audit := NewAudit(NewPublisher(client, 100), slog.New(slog.NewTextHandler(&logs, nil)))

	audit.Record(context.Background(), TransactionSubmitted, TransactionSubmittedEvent{Kind: "MOV", UserID: 1})
	n, err := client.XLen(context.Background(), AuditStream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mr.Close()
	audit.Record(context.Background(), TransactionSubmitted, TransactionSubmittedEvent{Kind: "TRX", UserID: 1})
	assert.Contains(t, logs.String(), "audit event not published")
}

func TestAuditNilIsNoop(t *testing.T) {
	var audit *Audit
	assert.NotPanics(t, func() {
		audit.Record(context.Background(), UserRegistered, UserRegisteredEvent{UserID: 1})
	})
}
