package player

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/roach88/mirror/internal/compiler"
	"github.com/roach88/mirror/internal/ir"
)

//go:embed player.cue
var schemaSource []byte

// TypeName is the declared type of the mirrored player.
const TypeName = "Player"

// Member names.
const (
	MemberVolume       = "Volume"
	MemberState        = "State"
	MemberCurrentTrack = "CurrentTrack"
	MemberPlay         = "Play"
	MemberQueueChanged = "QueueChanged"
	MemberFetchQueue   = "FetchQueue"
	MemberSeek         = "Seek"

	// MethodClearQueue is a local method; it never crosses the link.
	MethodClearQueue = "ClearQueue"
)

// Schema compiles and validates the embedded Player schema.
func Schema() (ir.ObjectSpec, error) {
	specs, err := compiler.CompileSource("player.cue", schemaSource)
	if err != nil {
		return ir.ObjectSpec{}, err
	}
	if errs := compiler.Validate(specs); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return ir.ObjectSpec{}, fmt.Errorf("player schema: %s", strings.Join(msgs, "; "))
	}
	for _, s := range specs {
		if s.Type == TypeName {
			return s, nil
		}
	}
	return ir.ObjectSpec{}, fmt.Errorf("player schema: no %s object", TypeName)
}

// SchemaSource returns the embedded CUE source.
func SchemaSource() []byte {
	return append([]byte(nil), schemaSource...)
}
