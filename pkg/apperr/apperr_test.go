package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	wrapped := Wrap("Click", CodeActionFailed, errors.New("element not found"), nil)
	assert.Equal(t, "Click: element not found", wrapped.Error())

	bare := &Error{Op: "Launch", Code: CodeStartup}
	assert.Equal(t, "Launch", bare.Error())
}

func TestUnwrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := Wrap("Navigate", CodeActionFailed, cause, nil)

	assert.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	t.Parallel()

	err := WrapErrorWithReason("IsReady", CodeBrowserNotReady, "browser_not_ready")
	assert.Equal(t, CodeBrowserNotReady, CodeOf(err))

	// Outermost code wins when errors nest.
	outer := Wrap("ExecuteTask", CodeInternal, err, nil)
	assert.Equal(t, CodeInternal, CodeOf(outer))

	// The inner code is still reachable through the chain.
	doubled := fmt.Errorf("attempt 2: %w", err)
	assert.Equal(t, CodeBrowserNotReady, CodeOf(doubled))

	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestWrapInitialisesMetadata(t *testing.T) {
	t.Parallel()

	err := Wrap("Fill", CodeActionFailed, errors.New("detached"), nil)

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	require.NotNil(t, appErr.Metadata)

	appErr.Metadata[MetaSelector] = "#q"
	assert.Equal(t, "#q", appErr.Metadata[MetaSelector])
}

func TestReasonHelpers(t *testing.T) {
	t.Parallel()

	var appErr *Error

	err := WrapWithReason("Screenshot", CodeActionFailed, errors.New("page closed"), "capture_failed")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "capture_failed", appErr.Metadata[MetaReason])

	err = InvalidReqError("Execute", "selector", errors.New("missing"))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CodeInvalidArgument, appErr.Code)
	assert.Equal(t, "selector", appErr.Metadata[MetaField])

	err = NotFoundError("Find", errors.New("no match"))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CodeNotFound, appErr.Code)
}
