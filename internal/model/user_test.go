package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ann Lee", User{FirstName: "Ann", LastName: "Lee"}.DisplayName())
	assert.Equal(t, "Ann", User{FirstName: " Ann "}.DisplayName())
	assert.Equal(t, "@ann", User{Username: "ann"}.DisplayName())
	assert.Equal(t, "friend", User{}.DisplayName())
}
