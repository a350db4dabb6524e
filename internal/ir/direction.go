package ir

import (
	"fmt"
	"strings"
)

// Direction selects which (sender, receiver) role pairs may relay a member.
type Direction uint8

const (
	DirectionNone Direction = iota
	DirectionBidirectional
	DirectionClientToHost
	DirectionHostToClient
	DirectionInbound
	DirectionInboundHost
	DirectionInboundClient
	DirectionOutbound
	DirectionOutboundHost
	DirectionOutboundClient
)

// Directions lists all ten directions in declaration order.
var Directions = []Direction{
	DirectionNone,
	DirectionBidirectional,
	DirectionClientToHost,
	DirectionHostToClient,
	DirectionInbound,
	DirectionInboundHost,
	DirectionInboundClient,
	DirectionOutbound,
	DirectionOutboundHost,
	DirectionOutboundClient,
}

var directionNames = [...]string{
	DirectionNone:           "None",
	DirectionBidirectional:  "Bidirectional",
	DirectionClientToHost:   "ClientToHost",
	DirectionHostToClient:   "HostToClient",
	DirectionInbound:        "Inbound",
	DirectionInboundHost:    "InboundHost",
	DirectionInboundClient:  "InboundClient",
	DirectionOutbound:       "Outbound",
	DirectionOutboundHost:   "OutboundHost",
	DirectionOutboundClient: "OutboundClient",
}

// capability is a predicate over a role set.
type capability uint8

const (
	never capability = iota
	always
	requiresHost
	requiresClient
)

func (c capability) holds(roles RoleSet) bool {
	switch c {
	case always:
		return true
	case requiresHost:
		return roles.Has(RoleHost)
	case requiresClient:
		return roles.Has(RoleClient)
	default:
		return false
	}
}

// policy is the (may-send, may-receive) capability pair of a direction.
type policy struct {
	send    capability
	receive capability
}

var policies = [...]policy{
	DirectionNone:           {never, never},
	DirectionBidirectional:  {always, always},
	DirectionClientToHost:   {requiresClient, requiresHost},
	DirectionHostToClient:   {requiresHost, requiresClient},
	DirectionInbound:        {never, always},
	DirectionInboundHost:    {never, requiresHost},
	DirectionInboundClient:  {never, requiresClient},
	DirectionOutbound:       {always, never},
	DirectionOutboundHost:   {requiresHost, never},
	DirectionOutboundClient: {requiresClient, never},
}

// Valid reports whether d is one of the ten defined directions.
func (d Direction) Valid() bool {
	return int(d) < len(policies)
}

// String returns the direction name.
func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection parses a direction name case-insensitively.
func ParseDirection(s string) (Direction, error) {
	name := strings.TrimSpace(s)
	for d, n := range directionNames {
		if strings.EqualFold(n, name) {
			return Direction(d), nil
		}
	}
	return DirectionNone, fmt.Errorf("unknown direction %q", s)
}

// MaySend reports whether a node holding roles may emit a relay for d.
// Undefined directions never send.
func MaySend(d Direction, roles RoleSet) bool {
	if !d.Valid() {
		return false
	}
	return policies[d].send.holds(roles)
}

// MayReceive reports whether a node holding roles may act on a relay for d.
// Undefined directions never receive.
func MayReceive(d Direction, roles RoleSet) bool {
	if !d.Valid() {
		return false
	}
	return policies[d].receive.holds(roles)
}

// CanRelay reports whether a relay for d flows from a sender holding
// senderRoles to a receiver holding receiverRoles.
//
// Pure and total: both halves of the direction's policy must hold.
func CanRelay(d Direction, senderRoles, receiverRoles RoleSet) bool {
	return MaySend(d, senderRoles) && MayReceive(d, receiverRoles)
}
