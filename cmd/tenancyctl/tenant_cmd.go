package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/tenancy/modules/core/domain/entities/tenant"
	"github.com/iota-uz/tenancy/modules/core/infrastructure/persistence"
	"github.com/iota-uz/tenancy/pkg/composables"
)

type tenantOutput struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	Domain         string   `json:"domain"`
	CustomDomains  []string `json:"custom_domains,omitempty"`
	EnabledModules []string `json:"enabled_modules"`
	IsActive       bool     `json:"is_active"`
}

func toTenantOutput(t *tenant.Tenant) tenantOutput {
	return tenantOutput{
		ID:             t.ID().String(),
		Slug:           t.Slug(),
		Name:           t.Name(),
		Domain:         t.Domain(),
		CustomDomains:  t.CustomDomains(),
		EnabledModules: t.EnabledModules(),
		IsActive:       t.IsActive(),
	}
}

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenant records",
	}
	cmd.AddCommand(newTenantAddCmd(), newTenantListCmd(), newTenantEnableCmd())
	return cmd
}

func newTenantAddCmd() *cobra.Command {
	var (
		name           string
		domain         string
		customDomains  []string
		enabledModules []string
		storageLocator string
	)

	cmd := &cobra.Command{
		Use:   "add <slug>",
		Short: "Create a tenant record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if domain == "" {
				return fmt.Errorf("--domain is required")
			}

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			repo := persistence.NewTenantRepository()

			record := tenant.New(args[0],
				tenant.WithName(name),
				tenant.WithDomain(domain),
				tenant.WithCustomDomains(customDomains),
				tenant.WithEnabledModules(enabledModules),
				tenant.WithStorageLocator(storageLocator),
			)
			created, err := repo.Create(ctx, record)
			if err != nil {
				return err
			}
			return writeJSON(toTenantOutput(created))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&domain, "domain", "", "main domain (required)")
	cmd.Flags().StringSliceVar(&customDomains, "custom-domain", nil, "additional domain (repeatable)")
	cmd.Flags().StringSliceVar(&enabledModules, "module", nil, "enabled module (repeatable)")
	cmd.Flags().StringVar(&storageLocator, "storage", "", "connection string of the tenant's isolated store")
	return cmd
}

func newTenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenant records",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			tenants, err := persistence.NewTenantRepository().List(ctx)
			if err != nil {
				return err
			}

			out := make([]tenantOutput, 0, len(tenants))
			for _, t := range tenants {
				out = append(out, toTenantOutput(t))
			}
			return writeJSON(out)
		},
	}
}

func newTenantEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <slug> <module>",
		Short: "Enable a module for a tenant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			repo := persistence.NewTenantRepository()

			record, err := repo.GetBySlug(ctx, args[0])
			if err != nil {
				return err
			}
			if record.ModuleEnabled(args[1]) {
				return writeJSON(toTenantOutput(record))
			}
			record.SetEnabledModules(append(record.EnabledModules(), args[1]))
			updated, err := repo.Update(ctx, record)
			if err != nil {
				return err
			}
			return writeJSON(toTenantOutput(updated))
		},
	}
}
