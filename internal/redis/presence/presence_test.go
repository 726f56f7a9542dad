package presence

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestSetOnline(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectTxPipeline()
	mock.ExpectSAdd("chat:online", "alice").SetVal(1)
	mock.ExpectSet("chat:online:alice", 1, 90*time.Second).SetVal("OK")
	mock.ExpectTxPipelineExec()

	require.NoError(t, store.SetOnline(context.Background(), "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOffline(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectTxPipeline()
	mock.ExpectSRem("chat:online", "alice").SetVal(1)
	mock.ExpectDel("chat:online:alice").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, store.SetOffline(context.Background(), "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExpire("chat:online:alice", 90*time.Second).SetVal(true)

	require.NoError(t, store.Refresh(context.Background(), "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnlinePrunesExpiredMarkers(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectSMembers("chat:online").SetVal([]string{"alice", "bob"})
	mock.ExpectExists("chat:online:alice").SetVal(1)
	mock.ExpectExists("chat:online:bob").SetVal(0)
	mock.ExpectSRem("chat:online", "bob").SetVal(1)

	online, err := store.Online(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, online)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnlineEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectSMembers("chat:online").SetVal([]string{})

	online, err := store.Online(context.Background())
	require.NoError(t, err)
	assert.Empty(t, online)
}
