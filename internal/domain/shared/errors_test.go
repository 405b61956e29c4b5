package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError("ALREADY_EXISTS", "customer with email exists")

	assert.True(t, errors.Is(err, ErrAlreadyExists))
	assert.False(t, errors.Is(err, ErrNotFound))

	wrapped := fmt.Errorf("create customer: %w", err)
	assert.True(t, errors.Is(wrapped, ErrAlreadyExists))
	assert.Equal(t, "create customer: customer with email exists", wrapped.Error())
}
