package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWalksWrappedChain(t *testing.T) {
	sentinel := New(KindGuard, "no items")
	wrapped := fmt.Errorf("proceed: %w", sentinel)

	assert.Equal(t, KindGuard, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, sentinel))
}

func TestKindOfUntypedIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Nil(t, As(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindDependency, cause, "save order")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dependency: save order: disk full", err.Error())
}
