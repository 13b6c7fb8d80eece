// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"classifieds/internal/models"
	"classifieds/internal/store"
)

var adminFlags struct {
	email    string
	name     string
	password string
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.ToLower(strings.TrimSpace(adminFlags.email))
		if email == "" || strings.TrimSpace(adminFlags.name) == "" {
			return errors.New("--email and --name are required")
		}
		if len(adminFlags.password) < 8 {
			return errors.New("--password must be at least 8 characters")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		u, err := store.NewUserStore(db).Create(cmd.Context(), store.NewUser{
			Name:     strings.TrimSpace(adminFlags.name),
			Email:    email,
			Password: adminFlags.password,
			Role:     models.RoleAdmin,
		})
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("an account with email %s already exists", email)
		}
		if err != nil {
			return err
		}

		slog.Info("admin created", "id", u.ID, "email", u.Email)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminFlags.email, "email", "", "admin email address")
	createAdminCmd.Flags().StringVar(&adminFlags.name, "name", "", "admin display name")
	createAdminCmd.Flags().StringVar(&adminFlags.password, "password", "", "admin password (min 8 characters)")
	rootCmd.AddCommand(createAdminCmd)
}
