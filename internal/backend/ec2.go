package backend

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/mistio/mist/internal/config"
)

// ec2API is the subset of the EC2 client used by ec2Connection.
type ec2API interface {
	ec2.DescribeInstancesAPIClient
	ImportKeyPair(ctx context.Context, params *ec2.ImportKeyPairInput, optFns ...func(*ec2.Options)) (*ec2.ImportKeyPairOutput, error)
	CreateSecurityGroup(ctx context.Context, params *ec2.CreateSecurityGroupInput, optFns ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error)
	AuthorizeSecurityGroupIngress(ctx context.Context, params *ec2.AuthorizeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
}

type ec2Driver struct {
	provider Provider
	region   string
	newAPI   func(ctx context.Context, region, accessKey, secretKey string) (ec2API, error)
}

func newEC2Driver(p Provider) *ec2Driver {
	return &ec2Driver{
		provider: p,
		region:   ec2Regions[p],
		newAPI:   newEC2API,
	}
}

// newEC2API builds an EC2 client with static credentials for one region.
func newEC2API(ctx context.Context, region, accessKey, secretKey string) (ec2API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return ec2.NewFromConfig(cfg), nil
}

func (d *ec2Driver) Profile() Profile { return ec2Profile }

func (d *ec2Driver) Validate(b config.Backend) error {
	return requireFields(string(d.provider), [2]string{"id", b.ID}, [2]string{"secret", b.Secret})
}

func (d *ec2Driver) Open(ctx context.Context, b config.Backend) (Connection, error) {
	api, err := d.newAPI(ctx, d.region, b.ID, b.Secret)
	if err != nil {
		return nil, err
	}
	// The variant, not plain "ec2", so callers can tell regions apart.
	return &ec2Connection{provider: d.provider, api: api}, nil
}

type ec2Connection struct {
	provider Provider
	api      ec2API
}

func (c *ec2Connection) Type() Provider { return c.provider }

func (c *ec2Connection) ListMachines(ctx context.Context) ([]Machine, error) {
	var machines []Machine
	paginator := ec2.NewDescribeInstancesPaginator(c.api, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		for _, r := range page.Reservations {
			for _, inst := range r.Instances {
				machines = append(machines, ec2Machine(inst))
			}
		}
	}
	return machines, nil
}

func ec2Machine(inst types.Instance) Machine {
	m := Machine{
		ID:         aws.ToString(inst.InstanceId),
		State:      StateUnknown,
		PublicIPs:  []string{},
		PrivateIPs: []string{},
		Tags:       make(map[string]string, len(inst.Tags)),
	}
	for _, t := range inst.Tags {
		m.Tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	m.Name = m.Tags["Name"]
	if m.Name == "" {
		m.Name = m.ID
	}
	if inst.State != nil {
		m.State = ec2State(inst.State.Name)
	}
	if ip := aws.ToString(inst.PublicIpAddress); ip != "" {
		m.PublicIPs = append(m.PublicIPs, ip)
	}
	if ip := aws.ToString(inst.PrivateIpAddress); ip != "" {
		m.PrivateIPs = append(m.PrivateIPs, ip)
	}
	return m
}

// ec2State maps instance states. Stopping and stopped instances surface as
// unknown, which the capability resolver reads as stopped for EC2.
func ec2State(name types.InstanceStateName) MachineState {
	switch name {
	case types.InstanceStateNamePending:
		return StatePending
	case types.InstanceStateNameRunning:
		return StateRunning
	case types.InstanceStateNameTerminated:
		return StateTerminated
	default:
		return StateUnknown
	}
}

func (c *ec2Connection) ImportKeyPair(ctx context.Context, name, keyFile string) error {
	material, err := os.ReadFile(keyFile)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}
	_, err = c.api.ImportKeyPair(ctx, &ec2.ImportKeyPairInput{
		KeyName:           aws.String(name),
		PublicKeyMaterial: material,
	})
	return err
}

func (c *ec2Connection) CreateSecurityGroup(ctx context.Context, name, description string) error {
	_, err := c.api.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String(description),
	})
	return err
}

// permissiveRules open every port of every protocol to the world.
var permissiveRules = []types.IpPermission{
	{IpProtocol: aws.String("tcp"), FromPort: aws.Int32(0), ToPort: aws.Int32(65535)},
	{IpProtocol: aws.String("udp"), FromPort: aws.Int32(0), ToPort: aws.Int32(65535)},
	{IpProtocol: aws.String("icmp"), FromPort: aws.Int32(-1), ToPort: aws.Int32(-1)},
}

func (c *ec2Connection) AuthorizeSecurityGroupPermissive(ctx context.Context, name string) error {
	for _, rule := range permissiveRules {
		rule.IpRanges = []types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}}
		_, err := c.api.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupName:     aws.String(name),
			IpPermissions: []types.IpPermission{rule},
		})
		if err != nil && !IsDuplicate(err) {
			return fmt.Errorf("failed to authorize %s on %s: %w", aws.ToString(rule.IpProtocol), name, err)
		}
	}
	return nil
}

func (c *ec2Connection) CreateTags(ctx context.Context, machineID string, tags map[string]string) error {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ec2Tags := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		ec2Tags = append(ec2Tags, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	_, err := c.api.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{machineID},
		Tags:      ec2Tags,
	})
	return err
}
