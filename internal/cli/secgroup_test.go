package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistio/mist/internal/backend"
	backendtesting "github.com/mistio/mist/internal/backend/testing"
	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/provision"
)

func secgroupFixture(t *testing.T, provider backend.Provider) (config.Runtime, *backendtesting.FakeConnection) {
	t.Helper()
	rt := testRuntime(t)
	s := config.DefaultSettings()
	s.AddBackend(config.Backend{Provider: string(provider), ID: "id", Secret: "secret", Datacenter: "dfw"})
	writeSettings(t, rt, s)
	conn := backendtesting.NewFakeConnection(provider)
	stubConnect(t, conn)
	return rt, conn
}

func TestSecgroupCreate(t *testing.T) {
	rt, conn := secgroupFixture(t, backend.EC2SAEast)
	info := provision.GroupInfo{Name: "mistio", Description: "Security group created by mist.io"}

	var buf bytes.Buffer
	require.NoError(t, secgroupCreate(context.Background(), &buf, rt, 0, info))
	require.NoError(t, secgroupCreate(context.Background(), &buf, rt, 0, info))

	assert.Equal(t, "Security group created by mist.io", conn.SecurityGroups["mistio"])
	assert.Equal(t, 1, conn.Authorized["mistio"])
	assert.Contains(t, buf.String(), "Security group 'mistio' is ready")
}

func TestSecgroupCreate_Unsupported(t *testing.T) {
	rt, conn := secgroupFixture(t, backend.Rackspace)

	err := secgroupCreate(context.Background(), &bytes.Buffer{}, rt, 0, provision.GroupInfo{Name: "g", Description: "d"})

	assert.True(t, errors.IsCode(err, errors.ErrProvision))
	assert.Empty(t, conn.SecurityGroups)
}

func TestSecgroupCreate_JSON(t *testing.T) {
	rt, _ := secgroupFixture(t, backend.EC2)
	rt.JSON = true

	var buf bytes.Buffer
	require.NoError(t, secgroupCreate(context.Background(), &buf, rt, 0, provision.GroupInfo{Name: "g", Description: "d"}))

	var data map[string]interface{}
	env := decodeEnvelope(t, buf.Bytes(), &data)
	assert.True(t, env.Success)
	assert.Equal(t, "g", data["group"])
}
