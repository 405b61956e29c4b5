package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryObjectStorage_Upload(t *testing.T) {
	s := NewMemoryObjectStorage()
	data := []byte("order_id\n1\n")

	key, err := s.Upload(context.Background(), "run-1/orders.csv", data, "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "run-1/orders.csv", key)

	data[0] = 'X'
	obj, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, "order_id\n1\n", string(obj.Data))
	assert.Equal(t, "text/csv", obj.ContentType)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryObjectStorage_Errors(t *testing.T) {
	s := NewMemoryObjectStorage()
	_, err := s.Upload(context.Background(), "", nil, "")
	assert.ErrorIs(t, err, ErrKeyRequired)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Upload(ctx, "k", nil, "")
	assert.ErrorIs(t, err, context.Canceled)
}
