package server

import (
	"context"
	"testing"

	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutOptionalInfra(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AWS.Region = "eu-west-1"
	cfg.Storage.TableName = "inquiries"
	logger := zerolog.Nop()

	s, err := New(context.Background(), cfg, &logger, nil)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", s.AWS.Region)
	assert.Nil(t, s.DB)
	assert.Nil(t, s.Redis)
	assert.Nil(t, s.Job)
	assert.NotNil(t, s.Metrics)

	families, err := s.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.EqualError(t, s.Start(), "HTTP server not initialized")
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestSetupHTTPServer(t *testing.T) {
	cfg := config.DefaultConfig()
	s := &Server{Config: cfg}

	s.SetupHTTPServer(nil)
	require.NotNil(t, s.httpServer)
	assert.Equal(t, ":8080", s.httpServer.Addr)
	assert.EqualValues(t, 10e9, s.httpServer.ReadTimeout)
}
