package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *RuntimeError
		want string
	}{
		{
			name: "object and member",
			err:  NewUnsupportedError("abc", "Seek"),
			want: "UNSUPPORTED_OPERATION: operation not supported over this link (object=abc, member=Seek)",
		},
		{
			name: "member only",
			err:  newError(ErrCodeUnknownMember, "", "Rewind", "no method named %q", "Rewind"),
			want: `UNKNOWN_MEMBER: no method named "Rewind" (member=Rewind)`,
		},
		{
			name: "bare",
			err:  newError(ErrCodeClosed, "", "", "node is closed"),
			want: "CLOSED: node is closed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestRuntimeError_Predicates(t *testing.T) {
	checks := map[RuntimeErrorCode]func(error) bool{
		ErrCodeUnsupported:      IsUnsupported,
		ErrCodeUnknownMember:    IsUnknownMember,
		ErrCodeShapeMismatch:    IsShapeMismatch,
		ErrCodeNotPermitted:     IsNotPermitted,
		ErrCodeIdentityMismatch: IsIdentityMismatch,
		ErrCodeRemote:           IsRemoteFailure,
		ErrCodeClosed:           IsClosed,
	}

	for code, is := range checks {
		err := fmt.Errorf("wrapped: %w", newError(code, "c", "m", "boom"))
		assert.True(t, is(err), "%s through a wrap", code)
		for other, otherIs := range checks {
			if other != code {
				assert.False(t, otherIs(err), "%s matched %s", code, other)
			}
		}
	}

	assert.False(t, IsClosed(errors.New("plain")))
	assert.False(t, IsClosed(nil))
}
