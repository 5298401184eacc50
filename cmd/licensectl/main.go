// Package main is the licensectl admin CLI for the license server.
//
// licensectl manages customers, licenses, and subscription state directly
// against the license database. It is the support-side counterpart to the
// customer portal: issuing keys, transferring licenses between servers, and
// recording billing events.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go4itsports/licensing/internal/config"
	"github.com/go4itsports/licensing/internal/db"
	"github.com/go4itsports/licensing/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// openDB connects to the database from the environment configuration.
func openDB(ctx context.Context) (*db.DB, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
		if err != nil {
			return nil, err
		}
		databaseURL = cfg.DatabaseURL
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	return db.New(ctx, db.DefaultConfig(databaseURL), logger)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "licensectl",
		Short:        "Administer Go4It Sports licenses",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCustomerCmd())
	rootCmd.AddCommand(newLicenseCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("licensectl %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}

func newCustomerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage customers",
	}
	cmd.AddCommand(newCustomerCreateCmd())
	cmd.AddCommand(newCustomerRenewCmd())
	cmd.AddCommand(newCustomerCancelCmd())
	return cmd
}

func newCustomerCreateCmd() *cobra.Command {
	var (
		name     string
		company  string
		tier     string
		password string
		months   int
	)

	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a customer and issue their first license",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]
			if !models.SubscriptionTier(tier).IsValid() {
				return fmt.Errorf("invalid tier %q", tier)
			}
			if password == "" {
				return errors.New("--password is required")
			}

			ctx := cmd.Context()
			database, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			existing, err := database.GetCustomerByEmail(ctx, email)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("customer %s already exists", email)
			}

			hash, err := models.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			customer := models.NewCustomer(email, name, hash)
			customer.Company = company
			customer.Tier = models.SubscriptionTier(tier)
			expiresAt := time.Now().AddDate(0, months, 0)
			customer.ExpiresAt = &expiresAt

			if err := database.CreateCustomer(ctx, customer); err != nil {
				return err
			}

			lic, err := models.NewLicense(customer.ID)
			if err != nil {
				return err
			}
			if err := database.CreateLicense(ctx, lic); err != nil {
				return err
			}

			if err := recordEvent(ctx, database, customer.ID, models.EventCreated, map[string]any{
				"tier":    tier,
				"expires": expiresAt.Format(time.RFC3339),
			}); err != nil {
				return err
			}

			fmt.Printf("customer %s created (%s)\n", email, customer.ID)
			fmt.Printf("license key: %s\n", lic.LicenseKey)
			fmt.Printf("expires: %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "customer name")
	cmd.Flags().StringVar(&company, "company", "", "company name")
	cmd.Flags().StringVar(&tier, "tier", string(models.TierStarter), "subscription tier (starter|professional|enterprise)")
	cmd.Flags().StringVar(&password, "password", "", "portal login password")
	cmd.Flags().IntVar(&months, "months", 12, "subscription length in months")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newCustomerRenewCmd() *cobra.Command {
	var (
		tier   string
		months int
	)

	cmd := &cobra.Command{
		Use:   "renew <email>",
		Short: "Renew a customer subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			customer, err := database.GetCustomerByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if customer == nil {
				return fmt.Errorf("customer %s not found", args[0])
			}

			newTier := customer.Tier
			if tier != "" {
				if !models.SubscriptionTier(tier).IsValid() {
					return fmt.Errorf("invalid tier %q", tier)
				}
				newTier = models.SubscriptionTier(tier)
			}

			// Renewals extend from the later of now and the current expiry.
			base := time.Now()
			if customer.ExpiresAt != nil && customer.ExpiresAt.After(base) {
				base = *customer.ExpiresAt
			}
			expiresAt := base.AddDate(0, months, 0)

			if err := database.UpdateSubscription(ctx, customer.ID, newTier, models.StatusActive, &expiresAt); err != nil {
				return err
			}

			if err := recordEvent(ctx, database, customer.ID, models.EventRenewed, map[string]any{
				"tier":    string(newTier),
				"expires": expiresAt.Format(time.RFC3339),
			}); err != nil {
				return err
			}

			fmt.Printf("subscription renewed until %s (%s)\n", expiresAt.Format(time.RFC3339), newTier)
			return nil
		},
	}

	cmd.Flags().StringVar(&tier, "tier", "", "change subscription tier on renewal")
	cmd.Flags().IntVar(&months, "months", 12, "renewal length in months")

	return cmd
}

func newCustomerCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <email>",
		Short: "Cancel a customer subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			customer, err := database.GetCustomerByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if customer == nil {
				return fmt.Errorf("customer %s not found", args[0])
			}

			if err := database.UpdateSubscription(ctx, customer.ID, customer.Tier, models.StatusCancelled, customer.ExpiresAt); err != nil {
				return err
			}

			if err := recordEvent(ctx, database, customer.ID, models.EventCancelled, nil); err != nil {
				return err
			}

			fmt.Printf("subscription cancelled for %s\n", customer.Email)
			return nil
		},
	}
}

func newLicenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Manage licenses",
	}
	cmd.AddCommand(newLicenseIssueCmd())
	cmd.AddCommand(newLicenseUnbindCmd())
	cmd.AddCommand(newLicenseRevokeCmd())
	cmd.AddCommand(newLicenseValidationsCmd())
	return cmd
}

func newLicenseIssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue <email>",
		Short: "Issue a new license key for a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			customer, err := database.GetCustomerByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if customer == nil {
				return fmt.Errorf("customer %s not found", args[0])
			}

			lic, err := models.NewLicense(customer.ID)
			if err != nil {
				return err
			}
			if err := database.CreateLicense(ctx, lic); err != nil {
				return err
			}

			fmt.Printf("license key: %s\n", lic.LicenseKey)
			return nil
		},
	}
}

func newLicenseUnbindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unbind <license-key>",
		Short: "Clear the server fingerprint so the license can move to a new server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			lic, err := database.GetLicenseByKey(ctx, args[0])
			if err != nil {
				return err
			}
			if lic == nil {
				return errors.New("license not found")
			}

			if err := database.UnbindFingerprint(ctx, lic.ID); err != nil {
				return err
			}

			fmt.Println("fingerprint cleared; next validation will bind the new server")
			return nil
		},
	}
}

func newLicenseRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <license-key>",
		Short: "Deactivate a license key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			lic, err := database.GetLicenseByKey(ctx, args[0])
			if err != nil {
				return err
			}
			if lic == nil {
				return errors.New("license not found")
			}

			if err := database.SetLicenseActive(ctx, lic.ID, false); err != nil {
				return err
			}

			fmt.Println("license revoked")
			return nil
		},
	}
}

func newLicenseValidationsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "validations <license-key>",
		Short: "Show recent validation audit rows for a license",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			lic, err := database.GetLicenseByKey(ctx, args[0])
			if err != nil {
				return err
			}
			if lic == nil {
				return errors.New("license not found")
			}

			validations, err := database.GetValidationsByLicenseID(ctx, lic.ID, limit)
			if err != nil {
				return err
			}

			if len(validations) == 0 {
				fmt.Println("no validations recorded")
				return nil
			}
			for _, v := range validations {
				fmt.Printf("%s  %s\n", v.ValidatedAt.Format(time.RFC3339), v.ServerFingerprint)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to show")

	return cmd
}

func recordEvent(ctx context.Context, database *db.DB, customerID uuid.UUID, eventType models.SubscriptionEventType, data map[string]any) error {
	return database.RecordSubscriptionEvent(ctx, &models.SubscriptionEvent{
		ID:         uuid.New(),
		CustomerID: customerID,
		EventType:  eventType,
		EventData:  data,
		CreatedAt:  time.Now(),
	})
}
