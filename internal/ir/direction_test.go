package ir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	noRoles    = RoleSet(0)
	hostOnly   = Roles(RoleHost)
	clientOnly = Roles(RoleClient)
	fullRoles  = Roles(RoleHost, RoleClient)
)

// expectedPolicy restates the direction table row by row.
func expectedPolicy(d Direction) (send, receive func(RoleSet) bool) {
	never := func(RoleSet) bool { return false }
	always := func(RoleSet) bool { return true }
	host := func(r RoleSet) bool { return r.Has(RoleHost) }
	client := func(r RoleSet) bool { return r.Has(RoleClient) }

	switch d {
	case DirectionNone:
		return never, never
	case DirectionBidirectional:
		return always, always
	case DirectionClientToHost:
		return client, host
	case DirectionHostToClient:
		return host, client
	case DirectionInbound:
		return never, always
	case DirectionInboundHost:
		return never, host
	case DirectionInboundClient:
		return never, client
	case DirectionOutbound:
		return always, never
	case DirectionOutboundHost:
		return host, never
	case DirectionOutboundClient:
		return client, never
	}
	panic(fmt.Sprintf("unexpected direction %d", d))
}

func TestCanRelay_Exhaustive(t *testing.T) {
	cases := 0
	for _, d := range Directions {
		send, receive := expectedPolicy(d)
		for _, sender := range AllRoleSets {
			for _, receiver := range AllRoleSets {
				want := send(sender) && receive(receiver)
				assert.Equal(t, want, CanRelay(d, sender, receiver),
					"CanRelay(%s, %s, %s)", d, sender, receiver)
				assert.Equal(t, send(sender), MaySend(d, sender), "MaySend(%s, %s)", d, sender)
				assert.Equal(t, receive(receiver), MayReceive(d, receiver), "MayReceive(%s, %s)", d, receiver)
				cases++
			}
		}
	}
	assert.Equal(t, 160, cases)
}

func TestCanRelay_ModePairs(t *testing.T) {
	// ClientToHost and HostToClient over every ordered mode pair.
	tests := []struct {
		sender, receiver Mode
		clientToHost     bool
		hostToClient     bool
	}{
		{ModeFull, ModeFull, true, true},
		{ModeFull, ModeHost, true, false},
		{ModeFull, ModeClient, false, true},
		{ModeHost, ModeFull, false, true},
		{ModeHost, ModeClient, false, true},
		{ModeClient, ModeFull, true, false},
		{ModeClient, ModeHost, true, false},
		{ModeHost, ModeHost, false, false},
		{ModeClient, ModeClient, false, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.sender, tt.receiver), func(t *testing.T) {
			s, r := tt.sender.Roles(), tt.receiver.Roles()
			assert.Equal(t, tt.clientToHost, CanRelay(DirectionClientToHost, s, r))
			assert.Equal(t, tt.hostToClient, CanRelay(DirectionHostToClient, s, r))
		})
	}
}

func TestCanRelay_NoneAndOneSided(t *testing.T) {
	oneSided := []Direction{
		DirectionNone,
		DirectionInbound, DirectionInboundHost, DirectionInboundClient,
		DirectionOutbound, DirectionOutboundHost, DirectionOutboundClient,
	}
	for _, d := range oneSided {
		for _, s := range Modes {
			for _, r := range Modes {
				assert.False(t, CanRelay(d, s.Roles(), r.Roles()), "%s %s->%s", d, s, r)
			}
		}
	}

	for _, s := range Modes {
		for _, r := range Modes {
			assert.True(t, CanRelay(DirectionBidirectional, s.Roles(), r.Roles()), "%s->%s", s, r)
		}
	}
}

func TestCanRelay_InvalidDirection(t *testing.T) {
	bogus := Direction(42)
	assert.False(t, bogus.Valid())
	assert.False(t, MaySend(bogus, fullRoles))
	assert.False(t, MayReceive(bogus, fullRoles))
	assert.Equal(t, "Direction(42)", bogus.String())
}

func TestFullModeSatisfiesBothPredicates(t *testing.T) {
	assert.True(t, MaySend(DirectionClientToHost, fullRoles))
	assert.True(t, MayReceive(DirectionClientToHost, fullRoles))
	assert.False(t, MaySend(DirectionClientToHost, hostOnly))
	assert.False(t, MayReceive(DirectionClientToHost, clientOnly))
	assert.True(t, MaySend(DirectionBidirectional, noRoles))
}

func TestParseDirection(t *testing.T) {
	for _, d := range Directions {
		parsed, err := ParseDirection(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}

	d, err := ParseDirection(" clienttohost ")
	require.NoError(t, err)
	assert.Equal(t, DirectionClientToHost, d)

	_, err = ParseDirection("Sideways")
	assert.Error(t, err)
}

func TestDirectionText(t *testing.T) {
	text, err := DirectionHostToClient.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "HostToClient", string(text))

	var d Direction
	require.NoError(t, d.UnmarshalText([]byte("OutboundClient")))
	assert.Equal(t, DirectionOutboundClient, d)

	assert.Error(t, d.UnmarshalText([]byte("nope")))
	_, err = Direction(99).MarshalText()
	assert.Error(t, err)
}
