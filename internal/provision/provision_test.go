package provision

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistio/mist/internal/backend"
	backendtesting "github.com/mistio/mist/internal/backend/testing"
	"github.com/mistio/mist/internal/logger"
)

const pubKey = "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQC7 mist@example"

func TestImportKey_Idempotent(t *testing.T) {
	log := logger.NewBufferLogger()
	p := New(WithLogger(log))
	conn := backendtesting.NewFakeConnection(backend.EC2EUWest)
	ctx := context.Background()

	assert.True(t, p.ImportKey(ctx, conn, pubKey, "deploy"))
	assert.True(t, p.ImportKey(ctx, conn, pubKey, "deploy"))

	assert.Len(t, conn.KeyPairs, 1)
	assert.Equal(t, pubKey, conn.KeyPairs["deploy"])
	assert.True(t, log.HasLevel("warn"), "duplicate import is logged")

	require.Len(t, conn.KeyFiles, 2)
	for _, path := range conn.KeyFiles {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "temp key file %s left behind", path)
	}
}

func TestImportKey_Failure(t *testing.T) {
	log := logger.NewBufferLogger()
	p := New(WithLogger(log))
	conn := backendtesting.NewFakeConnection(backend.EC2)
	conn.Err = errors.New("AuthFailure: credentials rejected")

	assert.False(t, p.ImportKey(context.Background(), conn, pubKey, "deploy"))
	assert.True(t, log.HasLevel("error"))

	require.Len(t, conn.KeyFiles, 1)
	_, err := os.Stat(conn.KeyFiles[0])
	assert.True(t, os.IsNotExist(err), "temp key file removed on failure")
}

func TestImportKey_UnsupportedProvider(t *testing.T) {
	for _, provider := range []backend.Provider{backend.Linode, backend.OpenStack, backend.Rackspace, backend.RackspaceFirstGen} {
		t.Run(string(provider), func(t *testing.T) {
			p := New(WithLogger(logger.Noop()))
			conn := backendtesting.NewFakeConnection(provider)

			assert.False(t, p.ImportKey(context.Background(), conn, pubKey, "deploy"))
			assert.Empty(t, conn.KeyFiles, "no import attempted")
		})
	}
}

func TestCreateSecurityGroup_Idempotent(t *testing.T) {
	p := New(WithLogger(logger.Noop()))
	conn := backendtesting.NewFakeConnection(backend.EC2USWestOregon)
	info := GroupInfo{Name: "mistio", Description: "Security group created by mist.io"}
	ctx := context.Background()

	assert.True(t, p.CreateSecurityGroup(ctx, conn, info))
	assert.True(t, p.CreateSecurityGroup(ctx, conn, info))

	assert.Len(t, conn.SecurityGroups, 1)
	assert.Equal(t, 1, conn.Authorized["mistio"], "rules applied once")
}

func TestCreateSecurityGroup_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		provider backend.Provider
		info     GroupInfo
	}{
		{"missing name", backend.EC2, GroupInfo{Description: "d"}},
		{"missing description", backend.EC2, GroupInfo{Name: "g"}},
		{"linode", backend.Linode, GroupInfo{Name: "g", Description: "d"}},
		{"openstack", backend.OpenStack, GroupInfo{Name: "g", Description: "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(WithLogger(logger.Noop()))
			conn := backendtesting.NewFakeConnection(tt.provider)

			assert.False(t, p.CreateSecurityGroup(context.Background(), conn, tt.info))
			assert.Empty(t, conn.SecurityGroups)
			assert.Empty(t, conn.Authorized)
		})
	}
}

func TestCreateSecurityGroup_Failure(t *testing.T) {
	log := logger.NewBufferLogger()
	p := New(WithLogger(log))
	conn := backendtesting.NewFakeConnection(backend.EC2)
	conn.Err = errors.New("RequestLimitExceeded")

	assert.False(t, p.CreateSecurityGroup(context.Background(), conn, GroupInfo{Name: "g", Description: "d"}))
	assert.True(t, log.HasLevel("error"))
}

func TestWithProfiles(t *testing.T) {
	p := New(
		WithLogger(logger.Noop()),
		WithProfiles(func(backend.Provider) backend.Profile {
			return backend.Profile{SupportsKeyImport: true, SupportsSecurityGroups: true}
		}),
	)
	conn := backendtesting.NewFakeConnection(backend.OpenStack)

	assert.True(t, p.ImportKey(context.Background(), conn, pubKey, "deploy"))
	assert.True(t, p.CreateSecurityGroup(context.Background(), conn, GroupInfo{Name: "g", Description: "d"}))
}
