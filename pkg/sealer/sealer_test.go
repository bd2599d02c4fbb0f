package sealer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := New(DevelopmentKey)
	require.NoError(t, err)

	token, err := s.Seal("slot-1", "reservation-1")
	require.NoError(t, err)
	assert.NotContains(t, token, "slot-1")

	first, second, err := s.Open(token)
	require.NoError(t, err)
	assert.Equal(t, "slot-1", first)
	assert.Equal(t, "reservation-1", second)
}

func TestSealIsNonDeterministic(t *testing.T) {
	s, err := New(DevelopmentKey)
	require.NoError(t, err)

	a, err := s.Seal("slot-1", "r")
	require.NoError(t, err)
	b, err := s.Seal("slot-1", "r")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenRejectsTamperedTokens(t *testing.T) {
	s, err := New(DevelopmentKey)
	require.NoError(t, err)

	token, err := s.Seal("slot-1", "reservation-1")
	require.NoError(t, err)

	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	for _, bad := range []string{"", "not base64!", "AAAA", string(tampered)} {
		_, _, err := s.Open(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", bad)
	}
}

func TestOpenRejectsForeignKey(t *testing.T) {
	s, err := New(DevelopmentKey)
	require.NoError(t, err)
	other, err := New("MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	require.NoError(t, err)

	token, err := s.Seal("slot-1", "reservation-1")
	require.NoError(t, err)

	_, _, err = other.Open(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("%%%")
	assert.Error(t, err)

	_, err = New("c2hvcnQ=")
	assert.Error(t, err)
}
