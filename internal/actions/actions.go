// Package actions decides which lifecycle actions a machine allows.
package actions

import "github.com/mistio/mist/internal/backend"

// Set is the fixed-shape answer returned for every machine.
type Set struct {
	CanStart   bool `json:"can_start"`
	CanStop    bool `json:"can_stop"`
	CanDestroy bool `json:"can_destroy"`
	CanReboot  bool `json:"can_reboot"`
	CanTag     bool `json:"can_tag"`
}

// Names lists the allowed actions in display order.
func (s Set) Names() []string {
	var names []string
	for _, a := range []struct {
		ok   bool
		name string
	}{
		{s.CanStart, "start"},
		{s.CanStop, "stop"},
		{s.CanReboot, "reboot"},
		{s.CanDestroy, "destroy"},
		{s.CanTag, "tag"},
	} {
		if a.ok {
			names = append(names, a.name)
		}
	}
	return names
}

// Resolve returns the actions permitted for a machine in state on a
// provider with the given profile. It is pure.
//
// The baseline assumes a running machine. Rules apply in order and later
// rules win:
//
//  1. Providers that support stop allow it.
//  2. Providers without tag support never allow tagging.
//  3. Rebooting or pending machines can only be destroyed or tagged.
//  4. Unknown or stopped machines on providers that report stopped machines
//     that way can be started.
//  5. Any other unknown, stopped or terminated machine allows nothing.
func Resolve(state backend.MachineState, profile backend.Profile) Set {
	s := Set{
		CanDestroy: true,
		CanReboot:  true,
		CanTag:     true,
	}

	if profile.SupportsStop {
		s.CanStop = true
	}
	if !profile.SupportsTags {
		s.CanTag = false
	}

	switch {
	case state == backend.StateRebooting || state == backend.StatePending:
		s.CanStart = false
		s.CanStop = false
		s.CanReboot = false
	case isUnknown(state) && profile.UnknownMeansStopped:
		s.CanStop = false
		s.CanStart = true
		s.CanReboot = false
	case state == backend.StateTerminated || isUnknown(state):
		s = Set{}
	}
	return s
}

// ForProvider resolves against the built-in profile of provider.
func ForProvider(state backend.MachineState, provider backend.Provider) Set {
	return Resolve(state, backend.ProfileOf(provider))
}

// ForMachine resolves the actions for a listed machine on conn.
func ForMachine(m backend.Machine, conn backend.Connection) Set {
	return ForProvider(m.State, conn.Type())
}

// isUnknown treats stopped like unknown; providers report stopped
// machines inconsistently.
func isUnknown(state backend.MachineState) bool {
	switch state {
	case backend.StateUnknown, backend.StateStopped:
		return true
	}
	// Anything outside the known states is unknown too.
	for _, known := range backend.MachineStates() {
		if state == known {
			return false
		}
	}
	return true
}
