package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectPingsServer(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+srv.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, Ping(context.Background(), client))
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.Error(t, err)

	_, err = Connect(context.Background(), "http://not-redis")
	assert.Error(t, err)
}
