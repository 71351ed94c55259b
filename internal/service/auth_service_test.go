package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medig/internal/store"
)

type fakeVerifier struct {
	res *VerifyResult
	err error
}

func (f *fakeVerifier) Verify(context.Context, string) (*VerifyResult, error) {
	return f.res, f.err
}

func newRedisKV(t *testing.T) (*miniredis.Miniredis, store.KV) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, store.NewRedisKV(client, "medig:")
}

func TestAuthService_VerifyAndCurrent(t *testing.T) {
	mr, kv := newRedisKV(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	exp := now.Add(60*time.Hour).UnixMilli()

	svc := NewAuthService(kv, &fakeVerifier{res: &VerifyResult{Success: true, Exp: exp}}, zap.NewNop())
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	v, err := svc.VerifyKey(ctx, "  key  ")
	require.NoError(t, err)
	assert.Equal(t, "AI User", v.Name)
	assert.Equal(t, "robot-icon", v.Picture)
	assert.Equal(t, "verified-key", v.Email)
	assert.Equal(t, 3, v.DaysLeft)
	assert.Equal(t, "03/06/2025", v.ExpDate)
	assert.True(t, mr.Exists("medig:medig-user"))
	assert.Greater(t, mr.TTL("medig:medig-user"), time.Duration(0))

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, exp, cur.Exp)

	require.NoError(t, svc.Logout(ctx))
	cur, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestAuthService_ExpiredSessionLogsOut(t *testing.T) {
	mr, kv := newRedisKV(t)
	svc := NewAuthService(kv, &fakeVerifier{}, zap.NewNop())
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	raw := `{"name":"AI User","picture":"robot-icon","email":"verified-key","exp":` +
		"1748649600000" + `}` // 2025-05-31
	require.NoError(t, mr.Set("medig:medig-user", raw))

	cur, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cur)
	assert.False(t, mr.Exists("medig:medig-user"))
}

func TestAuthService_CorruptSessionLogsOut(t *testing.T) {
	mr, kv := newRedisKV(t)
	svc := NewAuthService(kv, &fakeVerifier{}, zap.NewNop())
	require.NoError(t, mr.Set("medig:medig-user", "{not json"))

	cur, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cur)
	assert.False(t, mr.Exists("medig:medig-user"))
}

func TestAuthService_Rejected(t *testing.T) {
	_, kv := newRedisKV(t)
	svc := NewAuthService(kv, &fakeVerifier{res: &VerifyResult{Success: false, Error: "Key hết hạn"}}, zap.NewNop())

	_, err := svc.VerifyKey(context.Background(), "k")
	var rejected *KeyRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Key hết hạn", rejected.Reason)

	_, err = svc.VerifyKey(context.Background(), "   ")
	assert.True(t, errors.As(err, &rejected))
}

func TestAuthService_VerifyUnavailable(t *testing.T) {
	svc := NewAuthService(store.NewMemoryKV(), &fakeVerifier{err: ErrVerifyUnavailable}, zap.NewNop())
	_, err := svc.VerifyKey(context.Background(), "k")
	assert.True(t, errors.Is(err, ErrVerifyUnavailable))
}

func TestPreferenceService_Theme(t *testing.T) {
	mr, kv := newRedisKV(t)
	svc := NewPreferenceService(kv, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, ThemeLight, svc.Theme(ctx))

	require.NoError(t, svc.SetTheme(ctx, ThemeDark))
	assert.Equal(t, ThemeDark, svc.Theme(ctx))

	assert.True(t, errors.Is(svc.SetTheme(ctx, Theme("blue")), ErrInvalidTheme))

	require.NoError(t, mr.Set("medig:theme", "garbage"))
	assert.Equal(t, ThemeLight, svc.Theme(ctx))
}
