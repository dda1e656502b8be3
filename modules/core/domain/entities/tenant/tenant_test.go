package tenant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iota-uz/tenancy/modules/core/domain/entities/tenant"
)

func TestNew_NormalizesSlug(t *testing.T) {
	record := tenant.New("  Acme ")
	assert.Equal(t, "acme", record.Slug())
	assert.True(t, record.IsActive())
}

func TestEnabledModules_Normalized(t *testing.T) {
	record := tenant.New("acme",
		tenant.WithEnabledModules([]string{" Inventory ", "BILLING", "crm"}),
	)

	assert.Equal(t, []string{"inventory", "billing", "crm"}, record.EnabledModules())
}

func TestEnabledModules_ReturnsCopy(t *testing.T) {
	record := tenant.New("acme", tenant.WithEnabledModules([]string{"inventory"}))

	got := record.EnabledModules()
	got[0] = "mutated"

	assert.Equal(t, []string{"inventory"}, record.EnabledModules())
}

func TestModuleEnabled(t *testing.T) {
	record := tenant.New("acme", tenant.WithEnabledModules([]string{"Inventory", "billing "}))

	assert.True(t, record.ModuleEnabled("inventory"))
	assert.True(t, record.ModuleEnabled("billing"))
	assert.False(t, record.ModuleEnabled("crm"))
}
