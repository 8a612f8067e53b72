package wsclient

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubHandler struct {
	buildErr error
}

func (f *fakeSubHandler) BuildSubscribe(sub *Subscription) ([]byte, any, error) {
	if f.buildErr != nil {
		return nil, nil, f.buildErr
	}
	return []byte("sub:" + sub.Channel), sub.Key, nil
}

func (f *fakeSubHandler) BuildUnsubscribe(sub *Subscription) ([]byte, any, error) {
	return []byte("unsub:" + sub.Channel), sub.Key, nil
}

func (f *fakeSubHandler) ParseResponse(data []byte) (any, bool, error) {
	s := string(data)
	if len(s) < 4 {
		return nil, false, nil
	}
	return s[4:], true, nil
}

func TestRegistrySubscribeDuplicate(t *testing.T) {
	t.Parallel()
	r := NewRegistry(&fakeSubHandler{})
	_, payload, err := r.Subscribe("btc.trades", "btc.trades", nil)
	require.NoError(t, err)
	assert.Equal(t, "sub:btc.trades", string(payload))

	_, _, err = r.Subscribe("btc.trades", "btc.trades", nil)
	assert.ErrorIs(t, err, ErrSubscriptionDuplicate)
}

func TestRegistryHandleResponseConfirms(t *testing.T) {
	t.Parallel()
	r := NewRegistry(&fakeSubHandler{})
	_, _, err := r.Subscribe("btc.trades", "btc.trades", nil)
	require.NoError(t, err)

	matched, err := r.HandleResponse([]byte("ack:btc.trades"))
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, SubStatusSubscribed, r.byKey["btc.trades"].Status)
}

func TestRegistryUnsubscribeNotFound(t *testing.T) {
	t.Parallel()
	r := NewRegistry(&fakeSubHandler{})
	_, _, err := r.Unsubscribe("ghost")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestRegistrySnapshotAndReplayResetsToPending(t *testing.T) {
	t.Parallel()
	r := NewRegistry(&fakeSubHandler{})
	_, _, err := r.Subscribe("btc.trades", "btc.trades", map[string]decimal.Decimal{})
	require.NoError(t, err)
	_, _, err = r.Subscribe("eth.book", "eth.book", nil)
	require.NoError(t, err)
	r.HandleResponse([]byte("ack:btc.trades"))
	r.HandleResponse([]byte("ack:eth.book"))

	snap := r.SnapshotForReconnect()
	assert.Len(t, snap, 2)

	results, failures := r.ReplayAfterReconnect()
	assert.Len(t, results, 2)
	assert.Empty(t, failures)
	assert.Equal(t, SubStatusPending, r.byKey["btc.trades"].Status)
	assert.Equal(t, SubStatusPending, r.byKey["eth.book"].Status)
}

func TestRegistryReplayCollectsErrors(t *testing.T) {
	t.Parallel()
	handler := &fakeSubHandler{}
	r := NewRegistry(handler)
	_, _, err := r.Subscribe("btc.trades", "btc.trades", nil)
	require.NoError(t, err)

	handler.buildErr = assert.AnError
	_, failures := r.ReplayAfterReconnect()
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, assert.AnError)
	assert.Equal(t, SubStatusError, r.byKey["btc.trades"].Status)
}

func TestRegistryPrepareForReconnectFlipsSubscribedOnly(t *testing.T) {
	t.Parallel()
	r := NewRegistry(&fakeSubHandler{})
	_, _, err := r.Subscribe("btc.trades", "btc.trades", nil)
	require.NoError(t, err)
	_, _, err = r.Subscribe("eth.book", "eth.book", nil)
	require.NoError(t, err)
	r.HandleResponse([]byte("ack:btc.trades"))
	// eth.book is left pending (no ack yet)

	r.PrepareForReconnect()
	assert.Equal(t, SubStatusPending, r.byKey["btc.trades"].Status)
	assert.Equal(t, SubStatusPending, r.byKey["eth.book"].Status)
}

func TestRegistryExportImportRoundTrip(t *testing.T) {
	t.Parallel()
	r := NewRegistry(&fakeSubHandler{})
	_, _, err := r.Subscribe("btc.trades", "btc.trades", nil)
	require.NoError(t, err)
	r.HandleResponse([]byte("ack:btc.trades"))

	bag := r.ExportState()
	require.Len(t, bag, 1)

	r2 := NewRegistry(&fakeSubHandler{})
	r2.ImportState(bag)
	assert.Equal(t, SubStatusPending, r2.byKey["btc.trades"].Status)
}
