package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/adpscan/lib/store"
)

func TestNew(t *testing.T) {
	d, err := New(MONGODB, "")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = New("cassandra", "cassandra://localhost")
	require.ErrorIs(t, err, store.ErrUnknownType)
}
