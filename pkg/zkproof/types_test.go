package zkproof

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	// Terminal states and Nonexistent never move.
	for _, stuck := range []Status{StatusVerified, StatusInvalid, StatusNonexistent} {
		for _, computed := range []Status{StatusNonexistent, StatusVerifying, StatusVerified, StatusInvalid} {
			require.Equal(t, stuck, Next(stuck, computed), "from %s on %s", stuck, computed)
		}
	}
	// Verifying adopts whatever the run converged to.
	require.Equal(t, StatusVerified, Next(StatusVerifying, StatusVerified))
	require.Equal(t, StatusInvalid, Next(StatusVerifying, StatusInvalid))
	require.Equal(t, StatusVerifying, Next(StatusVerifying, StatusVerifying))
}

func TestStatusTerminal(t *testing.T) {
	require.True(t, StatusVerified.Terminal())
	require.True(t, StatusInvalid.Terminal())
	require.False(t, StatusVerifying.Terminal())
	require.False(t, StatusNonexistent.Terminal())
}

func TestStatusJSON(t *testing.T) {
	for _, s := range []Status{StatusNonexistent, StatusVerifying, StatusVerified, StatusInvalid} {
		b, err := json.Marshal(s)
		require.NoError(t, err)
		require.Equal(t, `"`+s.String()+`"`, string(b))

		var back Status
		require.NoError(t, json.Unmarshal(b, &back))
		require.Equal(t, s, back)
	}

	var s Status
	require.Error(t, json.Unmarshal([]byte(`"sideways"`), &s))
}

func TestBlobRoundTrip(t *testing.T) {
	w := membershipWitness{
		ProofSet:   [][]byte{{1, 2}, {3, 4}},
		ProofIndex: 1,
		NumLeaves:  4,
	}
	blob, err := encodeBlob(w)
	require.NoError(t, err)

	var back membershipWitness
	require.NoError(t, decodeBlob(blob, &back))
	require.Equal(t, w, back)

	require.ErrorIs(t, decodeBlob("%%%", &back), ErrProofInvalid)
}
