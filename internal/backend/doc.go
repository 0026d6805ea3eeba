// Package backend opens connections to configured cloud accounts.
//
// Each provider is served by a Driver registered in a Registry. The driver
// validates the backend descriptor, builds the provider client and reports
// the family Profile that the capability resolver and provisioner consult:
//
//	ec2, ec2_*           aws-sdk-go-v2 EC2 client, region taken from the variant
//	openstack            goose nova client, identity version from auth_version
//	rackspace            goose nova client against the v2.0 identity service
//	rackspace_first_gen  goose nova client using legacy v1.0 auth
//	linode               linodego client authenticated by the secret alone
//
// Connections are owned by the caller that opened them and are never
// persisted. Connect performs no retries.
package backend
