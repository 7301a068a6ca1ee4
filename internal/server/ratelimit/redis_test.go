package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectHit(mock redismock.ClientMock, key string, window time.Duration, n int64, ttlSet bool) {
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(n)
	mock.ExpectExpireNX(key, window).SetVal(ttlSet)
	mock.ExpectTxPipelineExec()
}

func TestRedisLimiter(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	l := NewRedisLimiter(db, KeyPrefix, 2, 15*time.Minute)
	key := "eduportal:rl:login:1.2.3.4"

	expectHit(mock, key, 15*time.Minute, 1, true)
	expectHit(mock, key, 15*time.Minute, 2, false)
	expectHit(mock, key, 15*time.Minute, 3, false)

	ok, err := l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLimiter_IncrError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewRedisLimiter(db, "rl:", 2, time.Minute)

	mock.ExpectTxPipeline()
	mock.ExpectIncr("rl:k").SetErr(errors.New("conn refused"))

	_, err := l.Allow(context.Background(), "k")
	require.ErrorContains(t, err, "redis limiter")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLimiter_ExpireFailureIsRepaired(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	l := NewRedisLimiter(db, "rl:", 1, time.Minute)

	// the first hit counts but its TTL is lost
	mock.ExpectTxPipeline()
	mock.ExpectIncr("rl:k").SetVal(1)
	mock.ExpectExpireNX("rl:k", time.Minute).SetErr(errors.New("conn reset"))

	_, err := l.Allow(ctx, "k")
	require.ErrorContains(t, err, "conn reset")

	// a later hit still sets the missing TTL so the key cannot lock out forever
	expectHit(mock, "rl:k", time.Minute, 2, true)

	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}
