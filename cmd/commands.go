package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"library-lending/internal/auth"
	"library-lending/internal/config"
	"library-lending/internal/lending"
	"library-lending/internal/repositories"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.DBDriver == repositories.DriverMemory {
				return fmt.Errorf("migrate needs a SQL driver, got %s", cfg.DBDriver)
			}
			db, err := repositories.Open(cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := repositories.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo books and members",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			cfg.Seed = true
			_, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			closeStore()
			return nil
		},
	}
}

func overdueCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List books due before a date (default today)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			engine := lending.NewEngine(store.Books(), store.Members(), cfg.Policy, nil)
			today := engine.Today()
			if date != "" {
				if today, err = time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			}

			books, err := engine.OverdueBooks(cmd.Context(), today)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "ID", "TITLE", "HOLDER", "DUE")
			for _, b := range books {
				holder, _ := b.Holder()
				fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", b.ID, b.Title, holder, b.DueDate.Format("2006-01-02"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date, YYYY-MM-DD")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			token, err := auth.NewJWTService(cfg.Security.JWTSigningKey, cfg.Security.JWTIssuer).GenerateToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "m1", "member id for the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
