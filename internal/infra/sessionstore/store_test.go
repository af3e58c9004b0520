package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/roundtable/internal/domain/conversation"
	"github.com/bryanwahyu/roundtable/internal/domain/documents"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
	"github.com/bryanwahyu/roundtable/internal/domain/session"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedis(client, "test", time.Hour)
}

func sampleState(t *testing.T) *session.State {
	t.Helper()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := session.New("s1", "acme", now)
	st.Ledger.Append(conversation.RoleUser, "Why?", now)
	st.Ledger.Append(conversation.RoleAssistant, "Because.", now)
	p, err := panel.New("Why?", []panel.Profile{{Title: "A"}, {Title: "B"}, {Title: "C"}}, now)
	require.NoError(t, err)
	p.Experts[0].AppendQA([]string{"q1"}, []string{"a1"})
	st.Panel = p
	st.Documents.Add(documents.Document{Filename: "notes.txt", Kind: documents.KindText, Text: "hello"})
	return st
}

func testStore(t *testing.T, store session.Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "acme", "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	st := sampleState(t)
	require.NoError(t, store.Save(ctx, st))

	got, err := store.Get(ctx, "acme", "s1")
	require.NoError(t, err)
	assert.Equal(t, st.Ledger.Turns(), got.Ledger.Turns())
	require.NotNil(t, got.Panel)
	assert.Equal(t, []string{"q1"}, got.Panel.Experts[0].Questions)
	assert.Equal(t, "Expert 1", got.Panel.Experts[0].Name)
	assert.Equal(t, "hello", got.Documents.Documents[0].Text)

	// copies are independent
	got.Ledger.Append(conversation.RoleUser, "More?", time.Now())
	again, err := store.Get(ctx, "acme", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Ledger.Len())

	// tenants are isolated
	_, err = store.Get(ctx, "other", "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "acme", "s1"))
	assert.ErrorIs(t, store.Delete(ctx, "acme", "s1"), session.ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	_, store := setupRedis(t)
	testStore(t, store)
}

func TestRedisStoreTTL(t *testing.T) {
	mr, store := setupRedis(t)
	require.NoError(t, store.Save(context.Background(), sampleState(t)))

	assert.Equal(t, time.Hour, mr.TTL("test:session:acme:s1"))
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(context.Background(), "acme", "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
	require.NoError(t, store.Ping(context.Background()))
}
