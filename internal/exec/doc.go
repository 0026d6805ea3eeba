// Package exec runs commands on cloud machines over SSH.
//
// The private key arrives as material in the request. It is written to a
// 0600 temporary file for the life of the call and removed on every exit
// path. Session settings travel in an sshutil.SessionConfig value, so
// concurrent runs are independent.
package exec
