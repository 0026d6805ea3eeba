package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEC2API struct {
	pages      []*ec2.DescribeInstancesOutput
	imported   []*ec2.ImportKeyPairInput
	groups     []*ec2.CreateSecurityGroupInput
	authorized []*ec2.AuthorizeSecurityGroupIngressInput
	tagged     []*ec2.CreateTagsInput
	authErr    error
}

func (f *fakeEC2API) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if len(f.pages) == 0 {
		return &ec2.DescribeInstancesOutput{}, nil
	}
	idx := 0
	if in.NextToken != nil {
		idx = int(aws.ToString(in.NextToken)[0] - '0')
	}
	return f.pages[idx], nil
}

func (f *fakeEC2API) ImportKeyPair(_ context.Context, in *ec2.ImportKeyPairInput, _ ...func(*ec2.Options)) (*ec2.ImportKeyPairOutput, error) {
	f.imported = append(f.imported, in)
	return &ec2.ImportKeyPairOutput{}, nil
}

func (f *fakeEC2API) CreateSecurityGroup(_ context.Context, in *ec2.CreateSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	f.groups = append(f.groups, in)
	return &ec2.CreateSecurityGroupOutput{}, nil
}

func (f *fakeEC2API) AuthorizeSecurityGroupIngress(_ context.Context, in *ec2.AuthorizeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	f.authorized = append(f.authorized, in)
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &ec2.AuthorizeSecurityGroupIngressOutput{}, nil
}

func (f *fakeEC2API) CreateTags(_ context.Context, in *ec2.CreateTagsInput, _ ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	f.tagged = append(f.tagged, in)
	return &ec2.CreateTagsOutput{}, nil
}

func instance(id string, state types.InstanceStateName, name string) types.Instance {
	inst := types.Instance{
		InstanceId: aws.String(id),
		State:      &types.InstanceState{Name: state},
	}
	if name != "" {
		inst.Tags = []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}}
	}
	return inst
}

func TestEC2ListMachines(t *testing.T) {
	web := instance("i-1", types.InstanceStateNameRunning, "web")
	web.PublicIpAddress = aws.String("54.1.2.3")
	web.PrivateIpAddress = aws.String("10.0.0.5")

	api := &fakeEC2API{pages: []*ec2.DescribeInstancesOutput{
		{
			Reservations: []types.Reservation{{Instances: []types.Instance{
				web,
				instance("i-2", types.InstanceStateNameStopped, ""),
			}}},
			NextToken: aws.String("1"),
		},
		{
			Reservations: []types.Reservation{{Instances: []types.Instance{
				instance("i-3", types.InstanceStateNamePending, "db"),
				instance("i-4", types.InstanceStateNameTerminated, "old"),
			}}},
		},
	}}
	conn := &ec2Connection{provider: EC2EUWest, api: api}

	machines, err := conn.ListMachines(context.Background())
	require.NoError(t, err)
	require.Len(t, machines, 4)

	assert.Equal(t, "web", machines[0].Name)
	assert.Equal(t, StateRunning, machines[0].State)
	assert.Equal(t, []string{"54.1.2.3"}, machines[0].PublicIPs)
	assert.Equal(t, []string{"10.0.0.5"}, machines[0].PrivateIPs)

	assert.Equal(t, "i-2", machines[1].Name, "falls back to the instance id")
	assert.Equal(t, StateUnknown, machines[1].State)
	assert.Empty(t, machines[1].PublicIPs)

	assert.Equal(t, StatePending, machines[2].State)
	assert.Equal(t, StateTerminated, machines[3].State)
}

func TestEC2State(t *testing.T) {
	tests := map[types.InstanceStateName]MachineState{
		types.InstanceStateNamePending:      StatePending,
		types.InstanceStateNameRunning:      StateRunning,
		types.InstanceStateNameShuttingDown: StateUnknown,
		types.InstanceStateNameStopping:     StateUnknown,
		types.InstanceStateNameStopped:      StateUnknown,
		types.InstanceStateNameTerminated:   StateTerminated,
	}
	for in, want := range tests {
		assert.Equal(t, want, ec2State(in), string(in))
	}
}

func TestEC2ImportKeyPair(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key.pub")
	require.NoError(t, os.WriteFile(keyFile, []byte("ssh-rsa AAAA test"), 0600))

	api := &fakeEC2API{}
	conn := &ec2Connection{provider: EC2, api: api}

	require.NoError(t, conn.ImportKeyPair(context.Background(), "deploy", keyFile))
	require.Len(t, api.imported, 1)
	assert.Equal(t, "deploy", aws.ToString(api.imported[0].KeyName))
	assert.Equal(t, []byte("ssh-rsa AAAA test"), api.imported[0].PublicKeyMaterial)

	err := conn.ImportKeyPair(context.Background(), "deploy", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEC2AuthorizePermissive(t *testing.T) {
	api := &fakeEC2API{}
	conn := &ec2Connection{provider: EC2, api: api}

	require.NoError(t, conn.AuthorizeSecurityGroupPermissive(context.Background(), "mistio"))
	require.Len(t, api.authorized, 3)

	protocols := make([]string, 0, 3)
	for _, in := range api.authorized {
		assert.Equal(t, "mistio", aws.ToString(in.GroupName))
		require.Len(t, in.IpPermissions, 1)
		perm := in.IpPermissions[0]
		protocols = append(protocols, aws.ToString(perm.IpProtocol))
		require.Len(t, perm.IpRanges, 1)
		assert.Equal(t, "0.0.0.0/0", aws.ToString(perm.IpRanges[0].CidrIp))
	}
	assert.Equal(t, []string{"tcp", "udp", "icmp"}, protocols)
}

func TestEC2AuthorizePermissive_Duplicate(t *testing.T) {
	api := &fakeEC2API{authErr: &smithy.GenericAPIError{Code: "InvalidPermission.Duplicate"}}
	conn := &ec2Connection{provider: EC2, api: api}

	assert.NoError(t, conn.AuthorizeSecurityGroupPermissive(context.Background(), "mistio"))
	assert.Len(t, api.authorized, 3)

	api.authErr = &smithy.GenericAPIError{Code: "InvalidGroup.NotFound"}
	err := conn.AuthorizeSecurityGroupPermissive(context.Background(), "mistio")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to authorize tcp on mistio")
}

func TestEC2CreateTags(t *testing.T) {
	api := &fakeEC2API{}
	conn := &ec2Connection{provider: EC2, api: api}

	require.NoError(t, conn.CreateTags(context.Background(), "i-1", map[string]string{"ssh_user": "ec2-user", "env": "prod"}))
	require.Len(t, api.tagged, 1)
	assert.Equal(t, []string{"i-1"}, api.tagged[0].Resources)
	require.Len(t, api.tagged[0].Tags, 2)
	assert.Equal(t, "env", aws.ToString(api.tagged[0].Tags[0].Key))
	assert.Equal(t, "ec2-user", aws.ToString(api.tagged[0].Tags[1].Value))
}
