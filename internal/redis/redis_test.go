package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockRedemption(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)
	ctx := context.Background()

	mock.ExpectSetNX("redeem_lock:ABC-DEF-VIP", "1", 10*time.Second).SetVal(true)
	require.NoError(t, c.LockRedemption(ctx, "ABC-DEF-VIP", 10*time.Second))

	mock.ExpectSetNX("redeem_lock:ABC-DEF-VIP", "1", 10*time.Second).SetVal(false)
	err := c.LockRedemption(ctx, "ABC-DEF-VIP", 10*time.Second)
	assert.ErrorIs(t, err, ErrLocked)

	mock.ExpectDel("redeem_lock:ABC-DEF-VIP").SetVal(1)
	require.NoError(t, c.UnlockRedemption(ctx, "ABC-DEF-VIP"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockRedemptionError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	mock.ExpectSetNX("redeem_lock:X", "1", time.Second).SetErr(errors.New("connection refused"))
	err := c.LockRedemption(context.Background(), "X", time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}

func TestReportCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)
	ctx := context.Background()

	mock.ExpectGet("report:business").RedisNil()
	_, found, err := c.CachedReport(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	mock.ExpectSet("report:business", []byte(`{"a":1}`), time.Minute).SetVal("OK")
	require.NoError(t, c.CacheReport(ctx, []byte(`{"a":1}`), time.Minute))

	mock.ExpectGet("report:business").SetVal(`{"a":1}`)
	payload, found, err := c.CachedReport(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"a":1}`, string(payload))

	mock.ExpectDel("report:business").SetVal(1)
	require.NoError(t, c.InvalidateReport(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}
