package wsclient

import (
	"bytes"
	"context"
	"crypto/hmac"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/blake2b"
)

// authSignature is the Match signature every AuthHandler registers
// its generated payload under. authenticate runs exactly once after
// each upgrade_ok, and check_reauthentication never overlaps it, so a
// single fixed signature per Connection is always sufficient to
// correlate the one outstanding auth request.
const authSignature = "auth"

// AuthState is the current authentication status of a Connection.
type AuthState struct {
	Authenticated bool
	ExpiresAt     time.Time
	LastError     error
}

// AuthHandler is the pluggable auth flow interface. GenerateAuthData
// builds the outbound auth payload and the signature Match should
// wait on; HandleAuthResponse interprets the frame delivered for that
// signature; NeedsReauthentication reports whether the current state
// has expired or never authenticated.
type AuthHandler interface {
	GenerateAuthData(ctx context.Context) (payload []byte, signature any, err error)
	HandleAuthResponse(data []byte) (AuthState, error)
	NeedsReauthentication(state AuthState) bool
}

// authFlow drives AuthHandler against a Match: send
// the generated payload, wait for the matching response on the
// signature, and fold the result into AuthState. One authFlow is
// owned by a single Connection.
type authFlow struct {
	handler AuthHandler
	match   *Match
	timeout time.Duration

	state AuthState
}

func newAuthFlow(handler AuthHandler, match *Match, timeout time.Duration) *authFlow {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &authFlow{handler: handler, match: match, timeout: timeout}
}

// authenticate runs one full auth round trip: generate, send (via
// send), wait for the correlated response, and apply it.
func (a *authFlow) authenticate(ctx context.Context, send func([]byte) error) (AuthState, error) {
	if a.handler == nil {
		return AuthState{}, errNoAuthHandler
	}
	payload, signature, err := a.handler.GenerateAuthData(ctx)
	if err != nil {
		a.state.LastError = err
		return a.state, err
	}
	ch, err := a.match.Set(signature, 1)
	if err != nil {
		return a.state, err
	}
	if err := send(payload); err != nil {
		a.match.RemoveSignature(signature)
		a.state.LastError = err
		return a.state, err
	}
	responses, err := waitForResponses(ctx, a.timeout, ch, 1, nil)
	if err != nil {
		a.state.LastError = err
		return a.state, err
	}
	return a.handleAuthResponse(responses[0])
}

func (a *authFlow) handleAuthResponse(data []byte) (AuthState, error) {
	state, err := a.handler.HandleAuthResponse(data)
	if err != nil {
		state.LastError = err
	}
	a.state = state
	return a.state, err
}

// checkReauthentication reports whether a fresh authenticate() round
// is needed before further traffic may be sent.
func (a *authFlow) checkReauthentication() bool {
	if a.handler == nil {
		return false
	}
	return a.handler.NeedsReauthentication(a.state)
}

// DefaultAuthHandler signs a nonce-bearing payload with blake2b keyed
// hashing, the HMAC-style request signing common to REST/WS auth
// endpoints.
type DefaultAuthHandler struct {
	APIKey    string
	APISecret []byte
	// Nonce returns the next nonce to sign; defaults to
	// time.Now().UnixNano() if nil.
	Nonce func() int64
	// Expiry is how long an authenticated session is considered valid
	// before NeedsReauthentication reports true again.
	Expiry time.Duration
}

func (d *DefaultAuthHandler) nonce() int64 {
	if d.Nonce != nil {
		return d.Nonce()
	}
	return time.Now().UnixNano()
}

func (d *DefaultAuthHandler) sign(nonce int64) ([]byte, error) {
	mac, err := blake2b.New256(d.APISecret)
	if err != nil {
		return nil, err
	}
	payload := itoa(nonce) + d.APIKey
	mac.Write([]byte(payload))
	return mac.Sum(nil), nil
}

func (d *DefaultAuthHandler) GenerateAuthData(_ context.Context) ([]byte, any, error) {
	nonce := d.nonce()
	sig, err := d.sign(nonce)
	if err != nil {
		return nil, nil, err
	}
	payload := []byte("auth:" + d.APIKey + ":" + itoa(nonce) + ":" + string(sig))
	return payload, authSignature, nil
}

func (d *DefaultAuthHandler) HandleAuthResponse(data []byte) (AuthState, error) {
	if len(data) == 0 {
		return AuthState{}, ErrAuthRejected
	}
	expiry := d.Expiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return AuthState{Authenticated: true, ExpiresAt: time.Now().Add(expiry)}, nil
}

func (d *DefaultAuthHandler) NeedsReauthentication(state AuthState) bool {
	if !state.Authenticated {
		return true
	}
	return !state.ExpiresAt.IsZero() && time.Now().After(state.ExpiresAt)
}

// TOTPAuthHandler layers a time-based one-time password onto
// DefaultAuthHandler's signing scheme, for endpoints that require a
// second factor on every auth round trip.
type TOTPAuthHandler struct {
	DefaultAuthHandler
	TOTPSecret string

	lastCode string
}

func (t *TOTPAuthHandler) GenerateAuthData(ctx context.Context) ([]byte, any, error) {
	payload, sig, err := t.DefaultAuthHandler.GenerateAuthData(ctx)
	if err != nil {
		return nil, nil, err
	}
	code, err := totp.GenerateCode(t.TOTPSecret, time.Now())
	if err != nil {
		return nil, nil, err
	}
	t.lastCode = code
	return append(payload, []byte(":"+code)...), sig, nil
}

// HandleAuthResponse requires the peer's ack to echo back the TOTP
// code that was sent, still within its validity window, compared in
// constant time so response timing can't be used to recover the code
// byte by byte. The remainder of the ack is handed to
// DefaultAuthHandler.HandleAuthResponse, which rejects it only if it
// is empty and otherwise sets the expiry; no signature in the ack is
// checked.
func (t *TOTPAuthHandler) HandleAuthResponse(data []byte) (AuthState, error) {
	idx := bytes.IndexByte(data, ':')
	if idx < 0 {
		return AuthState{}, ErrAuthRejected
	}
	ackCode, rest := data[:idx], data[idx+1:]
	if !constantTimeEqual(ackCode, []byte(t.lastCode)) || !validateTOTP(t.TOTPSecret, string(ackCode)) {
		return AuthState{}, ErrAuthRejected
	}
	return t.DefaultAuthHandler.HandleAuthResponse(rest)
}

func validateTOTP(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period: 30, Skew: 1, Digits: 6,
	})
	return err == nil && ok
}

// constantTimeEqual guards signature comparisons performed by custom
// AuthHandlers against timing attacks.
func constantTimeEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
