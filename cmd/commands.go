package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/deskbase-backend/internal/app"
	"github.com/yungbote/deskbase-backend/internal/data/db"
	httpMW "github.com/yungbote/deskbase-backend/internal/http/middleware"
	"github.com/yungbote/deskbase-backend/internal/platform/ctxutil"
	"github.com/yungbote/deskbase-backend/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the housekeeping scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker for statement reconciliation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.RunWorker(ctx)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		dbs, err := db.Open(log, cfg.DBConfig())
		if err != nil {
			return err
		}
		defer dbs.Close()
		if err := app.Migrate(dbs); err != nil {
			return err
		}
		log.Info("Schema up to date", "driver", dbs.Driver())
		return nil
	},
}

var tenantInput services.TenantInput

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenants",
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a tenant and print it as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			t, err := a.Services.Tenant.Create(ctx, tenantInput)
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		})
	},
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			ts, err := a.Services.Tenant.List(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, ts)
		})
	},
}

var (
	tokenTenant string
	tokenUser   string
	tokenRole   string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a tenant access token signed with JWT_SECRET_KEY",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := bootstrap()
		if err != nil {
			return err
		}
		tenantID, err := uuid.Parse(tokenTenant)
		if err != nil {
			return fmt.Errorf("--tenant: %w", err)
		}
		userID := uuid.New()
		if tokenUser != "" {
			if userID, err = uuid.Parse(tokenUser); err != nil {
				return fmt.Errorf("--user: %w", err)
			}
		}
		tok, err := httpMW.IssueToken(cfg.JWTSecretKey, cfg.JWTIssuer, tenantID, userID, tokenRole, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var (
	pricingTenant string
	pricingSpace  string
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Manage pricing rules",
}

var pricingImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace a space's (or the tenant-wide) pricing rules with a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var spaceID *uuid.UUID
		if pricingSpace != "" {
			id, err := uuid.Parse(pricingSpace)
			if err != nil {
				return fmt.Errorf("--space: %w", err)
			}
			spaceID = &id
		}
		return withTenant(cmd, pricingTenant, func(ctx context.Context, a *app.App) error {
			rules, err := a.Services.PricingRule.ImportYAML(ctx, spaceID, data)
			if err != nil {
				return err
			}
			return printJSON(cmd, rules)
		})
	},
}

var (
	reconcileTenant    string
	reconcileStatement string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one matching pass inline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tenantID, err := uuid.Parse(reconcileTenant)
		if err != nil {
			return fmt.Errorf("--tenant: %w", err)
		}
		var statementID *uuid.UUID
		if reconcileStatement != "" {
			id, err := uuid.Parse(reconcileStatement)
			if err != nil {
				return fmt.Errorf("--statement: %w", err)
			}
			statementID = &id
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Services.Reconciliation.Reconcile(ctx, tenantID, statementID)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

func init() {
	f := tenantCreateCmd.Flags()
	f.StringVar(&tenantInput.Name, "name", "", "tenant display name")
	f.StringVar(&tenantInput.Slug, "slug", "", "url slug (derived from the name when empty)")
	f.StringVar(&tenantInput.Currency, "currency", "", "ISO 4217 currency")
	f.StringVar(&tenantInput.Timezone, "timezone", "", "IANA timezone")
	f.Int64Var(&tenantInput.TaxRateBps, "tax-bps", 0, "tax rate in basis points")
	_ = tenantCreateCmd.MarkFlagRequired("name")
	tenantCmd.AddCommand(tenantCreateCmd, tenantListCmd)

	tokenCmd.Flags().StringVar(&tokenTenant, "tenant", "", "tenant id")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (random when empty)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "admin", "role claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("tenant")

	pricingImportCmd.Flags().StringVar(&pricingTenant, "tenant", "", "tenant id")
	pricingImportCmd.Flags().StringVar(&pricingSpace, "space", "", "space id (tenant-wide rules when empty)")
	_ = pricingImportCmd.MarkFlagRequired("tenant")
	pricingCmd.AddCommand(pricingImportCmd)

	reconcileCmd.Flags().StringVar(&reconcileTenant, "tenant", "", "tenant id")
	reconcileCmd.Flags().StringVar(&reconcileStatement, "statement", "", "statement id (all unmatched transactions when empty)")
	_ = reconcileCmd.MarkFlagRequired("tenant")
}

// withTenant runs fn with the tenant scope the API would get from a token.
func withTenant(cmd *cobra.Command, tenant string, fn func(ctx context.Context, a *app.App) error) error {
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return fmt.Errorf("--tenant: %w", err)
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TenantID: tenantID, Role: "admin"})
		return fn(ctx, a)
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
