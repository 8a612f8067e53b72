package wsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAuthResponse(t *testing.T) {
	t.Parallel()
	data := []byte(`{"event":"login"}`)
	got := classify(data, defaultSniffFields, []string{"login"}, []string{"subscribe"})
	assert.Equal(t, classAuthResponse, got)
}

func TestClassifySubscriptionResponse(t *testing.T) {
	t.Parallel()
	data := []byte(`{"event":"subscribe"}`)
	got := classify(data, defaultSniffFields, []string{"login"}, []string{"subscribe"})
	assert.Equal(t, classSubscriptionResponse, got)
}

func TestClassifyPlatformMessageFallback(t *testing.T) {
	t.Parallel()
	data := []byte(`{"channel":"trades"}`)
	got := classify(data, defaultSniffFields, []string{"login"}, []string{"subscribe"})
	assert.Equal(t, classPlatformMessage, got)

	assert.Equal(t, classPlatformMessage, classify([]byte("not json"), defaultSniffFields, nil, nil))
}
