package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersonRegistration_HasDescription(t *testing.T) {
	empty := ""
	note := "prefers email contact"

	assert.False(t, PersonRegistration{}.HasDescription())
	assert.True(t, PersonRegistration{Description: &empty}.HasDescription())
	assert.True(t, PersonRegistration{Description: &note}.HasDescription())
}
