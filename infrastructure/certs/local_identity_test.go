package certs

import (
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvision(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cfg, err := Provision(now, 0)
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)

	leaf := cfg.Certificates[0].Leaf
	require.NotNil(t, leaf)
	assert.Equal(t, now.Add(DefaultValidity), leaf.NotAfter.UTC())
	assert.NoError(t, leaf.VerifyHostname("localhost"))
	assert.NoError(t, leaf.VerifyHostname("127.0.0.1"))
	assert.NoError(t, leaf.VerifyHostname("::1"))
	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}, leaf.ExtKeyUsage)
	assert.True(t, leaf.NotBefore.Before(now))
}

func TestProvision_FreshKeyEachTime(t *testing.T) {
	a, err := Provision(time.Now(), time.Minute)
	require.NoError(t, err)
	b, err := Provision(time.Now(), time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, a.Certificates[0].Certificate[0], b.Certificates[0].Certificate[0])
}
