package ir

import (
	"fmt"
	"strings"
)

// Role is a single logical capability a node may hold.
type Role uint8

const (
	// RoleHost is the authoritative side of a host/client pairing.
	RoleHost Role = 1 << iota
	// RoleClient is the controlling side of a host/client pairing.
	RoleClient
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleHost:
		return "Host"
	case RoleClient:
		return "Client"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// RoleSet is a set of roles. The zero value is the empty set.
type RoleSet uint8

// Roles builds a RoleSet from individual roles.
func Roles(rs ...Role) RoleSet {
	var s RoleSet
	for _, r := range rs {
		s |= RoleSet(r)
	}
	return s
}

// Has reports whether the set contains r.
func (s RoleSet) Has(r Role) bool {
	return s&RoleSet(r) != 0
}

// String renders the set as "{Host,Client}" in a fixed order.
func (s RoleSet) String() string {
	var names []string
	if s.Has(RoleHost) {
		names = append(names, RoleHost.String())
	}
	if s.Has(RoleClient) {
		names = append(names, RoleClient.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// AllRoleSets enumerates every RoleSet the resolver is defined over.
var AllRoleSets = []RoleSet{
	0,
	Roles(RoleHost),
	Roles(RoleClient),
	Roles(RoleHost, RoleClient),
}

// Mode is the fixed capability grant of a node.
type Mode string

const (
	// ModeHost grants {Host}.
	ModeHost Mode = "Host"
	// ModeClient grants {Client}.
	ModeClient Mode = "Client"
	// ModeFull grants {Host, Client}.
	ModeFull Mode = "Full"
)

// Modes lists every valid mode.
var Modes = []Mode{ModeFull, ModeHost, ModeClient}

// Roles returns the role set granted by the mode.
// A Full node satisfies both Host and Client predicates at once.
func (m Mode) Roles() RoleSet {
	switch m {
	case ModeHost:
		return Roles(RoleHost)
	case ModeClient:
		return Roles(RoleClient)
	case ModeFull:
		return Roles(RoleHost, RoleClient)
	default:
		return 0
	}
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeHost, ModeClient, ModeFull:
		return true
	}
	return false
}

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid mode %q: must be one of Full, Host, Client", s)
}
