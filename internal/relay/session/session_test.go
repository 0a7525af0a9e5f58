package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "sid-1", "secret-value", time.Minute))

	got, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, "secret-value", got)
}

func TestMemoryStoreMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "sid-1", "v", -time.Second))

	_, err := s.Get(ctx, "sid-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "sid-1", "v", time.Minute))
	require.NoError(t, s.Delete(ctx, "sid-1"))
	require.NoError(t, s.Delete(ctx, "sid-1"), "double delete is a no-op")

	_, err := s.Get(ctx, "sid-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCookieCodecRoundTrip(t *testing.T) {
	codec := NewCookieCodec([]byte("test-secret"))

	token, err := codec.Issue("sid-42", time.Minute)
	require.NoError(t, err)

	sid, err := codec.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "sid-42", sid)
}

func TestCookieCodecRejectsWrongKey(t *testing.T) {
	token, err := NewCookieCodec([]byte("key-a")).Issue("sid-42", time.Minute)
	require.NoError(t, err)

	_, err = NewCookieCodec([]byte("key-b")).Parse(token)
	require.Error(t, err)
}

func TestCookieCodecRejectsExpired(t *testing.T) {
	codec := NewCookieCodec([]byte("test-secret"))

	token, err := codec.Issue("sid-42", -time.Minute)
	require.NoError(t, err)

	_, err = codec.Parse(token)
	require.Error(t, err)
}

func TestCookieCodecRejectsGarbage(t *testing.T) {
	_, err := NewCookieCodec([]byte("test-secret")).Parse("not-a-token")
	require.Error(t, err)
}

func TestSealedCodecRoundTrip(t *testing.T) {
	codec := NewSealedCodec([]byte("secret"), []byte("salt-0123456789ab"))

	sealed, err := codec.Seal("session_id=abc123")
	require.NoError(t, err)
	require.NotContains(t, sealed, "abc123", "sealed value must not leak the session")

	got, err := codec.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "session_id=abc123", got)
}

func TestSealedCodecRejectsTampering(t *testing.T) {
	codec := NewSealedCodec([]byte("secret"), []byte("salt-0123456789ab"))

	sealed, err := codec.Seal("value")
	require.NoError(t, err)

	tampered := "A" + sealed[1:]
	if tampered == sealed {
		tampered = "B" + sealed[1:]
	}
	_, err = codec.Open(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)

	other := NewSealedCodec([]byte("other"), []byte("salt-0123456789ab"))
	_, err = other.Open(sealed)
	require.ErrorIs(t, err, ErrInvalidToken)
}
