package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCloseCodeBoundaries(t *testing.T) {
	t.Parallel()

	ok := []int{1000, 1003, 1007, 1014, 3000, 4999}
	for _, c := range ok {
		assert.NoErrorf(t, ValidateCloseCode(c), "code %d should be ok", c)
	}

	reserved := []int{1004, 1005, 1006, 1015}
	for _, c := range reserved {
		assert.ErrorIsf(t, ValidateCloseCode(c), ErrReservedCloseCode, "code %d should be reserved", c)
	}

	invalid := []int{999, 1016, 2999, 5000}
	for _, c := range invalid {
		assert.ErrorIsf(t, ValidateCloseCode(c), ErrInvalidCloseCode, "code %d should be invalid", c)
	}
}

// TestControlFrameSize is Scenario F.
func TestControlFrameSize(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(Frame{Opcode: Ping, Data: bytes.Repeat([]byte{1}, 125)}))

	err := Validate(Frame{Opcode: Ping, Data: bytes.Repeat([]byte{1}, 126)})
	assert.ErrorIs(t, err, ErrControlFrameTooLarge)
}

// TestReservedCloseCodeRejected is Scenario E.
func TestReservedCloseCodeRejected(t *testing.T) {
	t.Parallel()

	_, err := Encode(Frame{Opcode: Close, Code: 1005})
	assert.ErrorIs(t, err, ErrReservedCloseCode)
}

func TestEncodeNormalizesCloseCode(t *testing.T) {
	t.Parallel()

	out, err := Encode(Frame{Opcode: Close, Code: 1000})
	require.NoError(t, err)
	assert.Equal(t, []byte{}, out.Data)
	assert.Equal(t, 1000, out.Code)
}

// TestEncodePreservesValidity is invariant 5.
func TestEncodePreservesValidity(t *testing.T) {
	t.Parallel()

	frames := []Frame{
		{Opcode: Text, Data: []byte("hello")},
		{Opcode: Binary, Data: []byte{1, 2, 3}},
		{Opcode: Ping},
		{Opcode: Ping, Data: []byte("hi")},
		{Opcode: Pong},
		{Opcode: Close},
		{Opcode: Close, Code: 1000},
		{Opcode: Close, Code: 3000, Data: []byte("bye")},
	}
	for _, f := range frames {
		require.NoError(t, Validate(f))
		encoded, err := Encode(f)
		require.NoError(t, err)
		assert.NoError(t, Validate(encoded))
	}
}

// TestDecodeEncodeRoundTrip is invariant 6.
func TestDecodeEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	frames := []Frame{
		{Opcode: Text, Data: []byte("hello")},
		{Opcode: Binary, Data: []byte{1, 2, 3}},
		{Opcode: Ping, Data: []byte("hi")},
		{Opcode: Pong, Data: []byte("yo")},
		{Opcode: Close, Code: 1000, Data: []byte{}},
	}
	for _, f := range frames {
		encoded, err := Encode(f)
		require.NoError(t, err)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, encoded, decoded)
	}
}

func TestDecodeInvalidFrame(t *testing.T) {
	t.Parallel()

	_, err := Decode(Frame{Opcode: Opcode(99)})
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestCloseCodeMeaning(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "normal closure", CloseCodeMeaning(1000))
	assert.Contains(t, CloseCodeMeaning(1006), "reserved")
	assert.Contains(t, CloseCodeMeaning(3500), "library/framework")
	assert.Equal(t, "unknown close code", CloseCodeMeaning(7))
}

func TestValidateNilPayloads(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Validate(Frame{Opcode: Text}), ErrInvalidTextData)
	assert.ErrorIs(t, Validate(Frame{Opcode: Binary}), ErrInvalidBinaryData)
}
