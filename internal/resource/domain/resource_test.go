package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	macDomain "github.com/allisson/accessgate/internal/mac/domain"
)

func TestResource_AttributeMap(t *testing.T) {
	ownerID := uuid.Must(uuid.NewV7())
	resource := &Resource{
		ID:         uuid.Must(uuid.NewV7()),
		Type:       "document",
		ExternalID: "doc-7",
		OwnerID:    &ownerID,
		Label:      macDomain.NewLabel(macDomain.LevelConfidential, []string{"personnel"}),
	}

	attrs := resource.AttributeMap([]*Attribute{
		{Name: "department", Value: "HR"},
		{Name: "securityLevel", Value: "PUBLIC"},
	})

	assert.Equal(t, "HR", attrs["department"])
	assert.Equal(t, "CONFIDENTIAL", attrs["securityLevel"])
	assert.Equal(t, []string{"PERSONNEL"}, attrs["compartments"])
	assert.Equal(t, ownerID.String(), attrs["ownerId"])
	assert.Equal(t, "doc-7", attrs["externalId"])
}

func TestResource_IsOwnedBy(t *testing.T) {
	ownerID := uuid.Must(uuid.NewV7())
	resource := &Resource{OwnerID: &ownerID}

	assert.True(t, resource.IsOwnedBy(ownerID))
	assert.False(t, resource.IsOwnedBy(uuid.Must(uuid.NewV7())))
	assert.False(t, (&Resource{}).IsOwnedBy(ownerID))
}

func TestIsReservedAttribute(t *testing.T) {
	assert.True(t, IsReservedAttribute("securityLevel"))
	assert.False(t, IsReservedAttribute("department"))
}
