// ABOUTME: Tests for entity type parsing and API path mapping
// ABOUTME: Covers the known entity kinds and rejection of unknown strings
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIPath(t *testing.T) {
	assert.Equal(t, "jobs", EntityJob.APIPath())
	assert.Equal(t, "clients", EntityClient.APIPath())
	assert.Equal(t, "invoices", EntityInvoice.APIPath())
}

func TestParseEntityType(t *testing.T) {
	for _, entity := range EntityTypes {
		parsed, err := ParseEntityType(string(entity))
		require.NoError(t, err)
		assert.Equal(t, entity, parsed)
		assert.True(t, parsed.Valid())
	}
}

func TestParseEntityTypeUnknown(t *testing.T) {
	_, err := ParseEntityType("widget")
	assert.Error(t, err)
	assert.False(t, EntityType("widget").Valid())
}
