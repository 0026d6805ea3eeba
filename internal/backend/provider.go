package backend

// Provider is the driver key persisted in a backend descriptor.
type Provider string

// Registered providers.
const (
	EC2               Provider = "ec2"
	EC2USEast         Provider = "ec2_us_east"
	EC2USWest         Provider = "ec2_us_west"
	EC2USWestOregon   Provider = "ec2_us_west_oregon"
	EC2EUWest         Provider = "ec2_eu_west"
	EC2APSoutheast    Provider = "ec2_ap_southeast"
	EC2APSoutheast2   Provider = "ec2_ap_southeast2"
	EC2APNortheast    Provider = "ec2_ap_northeast"
	EC2SAEast         Provider = "ec2_sa_east"
	Rackspace         Provider = "rackspace"
	RackspaceFirstGen Provider = "rackspace_first_gen"
	Linode            Provider = "linode"
	OpenStack         Provider = "openstack"
)

// ec2Regions maps every EC2 variant to its AWS region.
var ec2Regions = map[Provider]string{
	EC2:             "us-east-1",
	EC2USEast:       "us-east-1",
	EC2USWest:       "us-west-1",
	EC2USWestOregon: "us-west-2",
	EC2EUWest:       "eu-west-1",
	EC2APSoutheast:  "ap-southeast-1",
	EC2APSoutheast2: "ap-southeast-2",
	EC2APNortheast:  "ap-northeast-1",
	EC2SAEast:       "sa-east-1",
}

// EC2Providers returns the EC2 variants in a stable order.
func EC2Providers() []Provider {
	return []Provider{
		EC2, EC2USEast, EC2USWest, EC2USWestOregon, EC2EUWest,
		EC2APSoutheast, EC2APSoutheast2, EC2APNortheast, EC2SAEast,
	}
}

// Family groups providers sharing a construction and capability profile.
type Family string

const (
	FamilyEC2             Family = "ec2"
	FamilyRackspaceLegacy Family = "rackspace_legacy"
	FamilyRackspace       Family = "rackspace"
	FamilyLinode          Family = "linode"
	FamilyOpenStack       Family = "openstack"
)

// Profile describes what a provider family supports.
// The capability resolver and the provisioner consult these flags rather
// than provider names, so a new provider only needs a driver and a profile.
type Profile struct {
	Family Family

	// SupportsStop is true when running machines can be stopped and started again.
	SupportsStop bool

	// SupportsTags is true when machines can carry tags/metadata.
	SupportsTags bool

	// UnknownMeansStopped is true when the provider reports stopped machines
	// with an unknown/stopped state rather than a dedicated one.
	UnknownMeansStopped bool

	SupportsKeyImport      bool
	SupportsSecurityGroups bool
}

var (
	ec2Profile = Profile{
		Family:                 FamilyEC2,
		SupportsStop:           true,
		SupportsTags:           true,
		UnknownMeansStopped:    true,
		SupportsKeyImport:      true,
		SupportsSecurityGroups: true,
	}
	rackspaceLegacyProfile = Profile{Family: FamilyRackspaceLegacy}
	rackspaceProfile       = Profile{Family: FamilyRackspace, SupportsTags: true}
	linodeProfile          = Profile{Family: FamilyLinode}
	openstackProfile       = Profile{Family: FamilyOpenStack, SupportsTags: true}
)
