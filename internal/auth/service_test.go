package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestService_Login(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(time.Hour, rdb)
	require.NotNil(t, authService)
	assert.NotNil(t, authService.redisClient)
	assert.Equal(t, time.Hour, authService.ttl)

	testToken := "test_token"
	authService.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken
	sessionVal := fmt.Sprintf("user1||admin||%d", now.Unix())
	mock.ExpectSet(sessionKey, sessionVal, 0).SetVal(sessionVal)
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := authService.Login(context.Background(), "user1", "admin", now)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Logout(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(time.Hour, rdb)

	testToken := "test_token"
	sessionKey := sessionKeyPrefix + testToken
	now := time.Now()

	mock.ExpectGet(sessionKey).SetVal(fmt.Sprintf("user1||user||%d", now.Unix()))
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, testToken).SetVal(1)

	found, err := authService.Logout(context.Background(), testToken)
	require.NoError(t, err)
	assert.True(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseSessionValue(t *testing.T) {
	now := time.Now()
	session, err := parseSessionValue("tok", fmt.Sprintf("user42||admin||%d", now.Unix()))
	require.NoError(t, err)
	assert.Equal(t, "tok", session.Token)
	assert.Equal(t, "user42", session.UserID)
	assert.Equal(t, "admin", session.Role)
	assert.Equal(t, now.Unix(), session.CreatedAt.Unix())

	_, err = parseSessionValue("tok", "garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = parseSessionValue("tok", "user||role||not-a-number")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLoginChecker_GetSession(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	checker := NewLoginChecker(time.Hour, rdb)

	now := time.Now()
	then := now.Add(-2 * time.Hour)

	freshKey := sessionKeyPrefix + "fresh"
	staleKey := sessionKeyPrefix + "stale"
	mock.ExpectGet(freshKey).SetVal(fmt.Sprintf("user1||user||%d", now.Unix()))
	mock.ExpectGet(staleKey).SetVal(fmt.Sprintf("user1||user||%d", then.Unix()))
	mock.ExpectGet(sessionKeyPrefix + "missing").RedisNil()

	session, err := checker.GetSession(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, "user1", session.UserID)

	_, err = checker.GetSession(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = checker.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestJWT_RoundTrip(t *testing.T) {
	now := time.Now()
	secret := "test-secret"

	tokenStr, err := NewJWT("user7", "admin", secret, time.Hour, now)
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	claims, err := VerifyJWT(tokenStr, secret)
	require.NoError(t, err)
	assert.Equal(t, "user7", claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = VerifyJWT(tokenStr, "wrong-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWT("user7", "admin", secret, time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = VerifyJWT(expired, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
