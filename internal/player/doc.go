// Package player is a mirrored playback session built on the relay
// engine.
//
// The Player type is described by an embedded CUE schema and bound to a
// Session. A host node exposes the authoritative session; client nodes
// mirror it by instance id. Clients ask the host to play tracks, the
// host publishes the current track and playback state, either side may
// change the volume, and clients page through the host's queue with a
// guarded fetch.
package player
