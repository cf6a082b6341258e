package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandByteArray_Length(t *testing.T) {
	a, err := GenerateRandByteArray(32)
	require.NoError(t, err)
	b, err := GenerateRandByteArray(32)
	require.NoError(t, err)
	require.Len(t, a, 32)
	if string(a) == string(b) {
		t.Logf("warning: two GenerateRandByteArray(32) results are identical; extremely unlikely")
	}
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, buf)

	WipeByteArray(nil)
}

func TestTaxonomy_Distinct(t *testing.T) {
	all := []error{ErrValidation, ErrStateConflict, ErrAuthorization, ErrUnknownOutcome, ErrLedgerRejected, ErrorNotFound}
	for i, a := range all {
		wrapped := fmt.Errorf("stage: %w", a)
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(wrapped, b), "%v vs %v", a, b)
		}
	}
}
