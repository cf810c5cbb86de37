package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeErrorIsThroughWrapChain(t *testing.T) {
	err := ErrSessionNotFound.WrapMsg("lookup failed", "session_id", "s1")
	require.Error(t, err)

	assert.True(t, ErrSessionNotFound.Is(err))
	assert.False(t, ErrRoomNotFound.Is(err))

	// one more layer of context must not hide the code
	wrapped := errors.Wrap(err, "outer")
	assert.True(t, ErrSessionNotFound.Is(wrapped))
}

func TestCodeErrorWithDetail(t *testing.T) {
	e := ErrTransport.WithDetail("write timeout")
	assert.Equal(t, ErrTransport.Code, e.Code)
	assert.Contains(t, e.Error(), "write timeout")

	e2 := e.WithDetail("peer gone")
	assert.Contains(t, e2.Detail, "write timeout")
	assert.Contains(t, e2.Detail, "peer gone")

	// predefined values stay untouched
	assert.Empty(t, ErrTransport.Detail)
}

func TestCodeErrorMessageFormat(t *testing.T) {
	err := ErrUnauthorized.WrapMsg("", "token", "abc")
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Contains(t, err.Error(), "token=abc")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil))
	assert.NoError(t, WrapMsg(nil, "ignored"))
}
