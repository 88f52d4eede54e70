package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStore(t *testing.T) {
	rt := newTestRuntime(t, "")

	store, err := newSessionStore(rt)
	require.NoError(t, err)
	assert.NotNil(t, store)

	rt.cfg.Server.SessionSecret = "secret"
	store, err = newSessionStore(rt)
	require.NoError(t, err)
	assert.NotNil(t, store)
}
