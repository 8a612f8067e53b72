package wsclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAuthHandlerGenerateAndHandle(t *testing.T) {
	t.Parallel()
	h := &DefaultAuthHandler{APIKey: "key", APISecret: []byte("secret"), Nonce: func() int64 { return 1 }}
	payload, sig, err := h.GenerateAuthData(t.Context())
	require.NoError(t, err)
	assert.Equal(t, authSignature, sig)
	assert.Contains(t, string(payload), "auth:key:1:")

	state, err := h.HandleAuthResponse([]byte("ok"))
	require.NoError(t, err)
	assert.True(t, state.Authenticated)
	assert.False(t, state.ExpiresAt.IsZero())
}

func TestDefaultAuthHandlerRejectsEmptyResponse(t *testing.T) {
	t.Parallel()
	h := &DefaultAuthHandler{APIKey: "key", APISecret: []byte("secret")}
	_, err := h.HandleAuthResponse(nil)
	assert.ErrorIs(t, err, ErrAuthRejected)
}

func TestNeedsReauthentication(t *testing.T) {
	t.Parallel()
	h := &DefaultAuthHandler{}
	assert.True(t, h.NeedsReauthentication(AuthState{}))
	assert.False(t, h.NeedsReauthentication(AuthState{Authenticated: true, ExpiresAt: time.Now().Add(time.Hour)}))
	assert.True(t, h.NeedsReauthentication(AuthState{Authenticated: true, ExpiresAt: time.Now().Add(-time.Hour)}))
}

func TestAuthFlowAuthenticateRoundTrip(t *testing.T) {
	t.Parallel()
	h := &DefaultAuthHandler{APIKey: "key", APISecret: []byte("secret"), Nonce: func() int64 { return 7 }}
	match := NewMatch()
	flow := newAuthFlow(h, match, time.Second)

	var sent []byte
	send := func(payload []byte) error {
		sent = payload
		go match.IncomingWithData(authSignature, []byte("ack"))
		return nil
	}

	state, err := flow.authenticate(context.Background(), send)
	require.NoError(t, err)
	assert.True(t, state.Authenticated)
	assert.NotEmpty(t, sent)
}

func TestAuthFlowNoHandler(t *testing.T) {
	t.Parallel()
	flow := newAuthFlow(nil, NewMatch(), time.Second)
	_, err := flow.authenticate(context.Background(), func([]byte) error { return nil })
	assert.ErrorIs(t, err, errNoAuthHandler)
}

func TestTOTPAuthHandlerRoundTrip(t *testing.T) {
	t.Parallel()
	h := &TOTPAuthHandler{
		DefaultAuthHandler: DefaultAuthHandler{APIKey: "key", APISecret: []byte("secret"), Nonce: func() int64 { return 1 }},
		TOTPSecret:         "JBSWY3DPEHPK3PXP",
	}
	_, sig, err := h.GenerateAuthData(t.Context())
	require.NoError(t, err)
	assert.Equal(t, authSignature, sig)
	require.NotEmpty(t, h.lastCode)

	state, err := h.HandleAuthResponse([]byte(h.lastCode + ":ok"))
	require.NoError(t, err)
	assert.True(t, state.Authenticated)
}

func TestTOTPAuthHandlerRejectsMismatchedCode(t *testing.T) {
	t.Parallel()
	h := &TOTPAuthHandler{
		DefaultAuthHandler: DefaultAuthHandler{APIKey: "key", APISecret: []byte("secret")},
		TOTPSecret:         "JBSWY3DPEHPK3PXP",
	}
	_, _, err := h.GenerateAuthData(t.Context())
	require.NoError(t, err)

	_, err = h.HandleAuthResponse([]byte("000000:ok"))
	assert.ErrorIs(t, err, ErrAuthRejected)
}

func TestTOTPAuthHandlerRejectsMalformedResponse(t *testing.T) {
	t.Parallel()
	h := &TOTPAuthHandler{
		DefaultAuthHandler: DefaultAuthHandler{APIKey: "key", APISecret: []byte("secret")},
		TOTPSecret:         "JBSWY3DPEHPK3PXP",
	}
	_, err := h.HandleAuthResponse([]byte("no-separator"))
	assert.ErrorIs(t, err, ErrAuthRejected)
}

func TestAuthFlowTimeout(t *testing.T) {
	t.Parallel()
	h := &DefaultAuthHandler{APIKey: "key", APISecret: []byte("secret")}
	match := NewMatch()
	flow := newAuthFlow(h, match, 10*time.Millisecond)
	_, err := flow.authenticate(context.Background(), func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrSignatureTimeout)
}
