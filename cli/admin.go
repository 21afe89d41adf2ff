package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"unionhall/account"
	"unionhall/models"
)

var adminEmail string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account or promote an existing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}

		password, err := promptPassword("Admin password")
		if err != nil {
			return err
		}

		acc, created, err := createAdmin(db, adminEmail, password, account.DefaultCost)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin account %s\n", acc.Email)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Promoted %s to admin and reset its password\n", acc.Email)
		}
		return nil
	},
}

func promptPassword(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(s string) error {
			if len(s) < account.MinPasswordLength {
				return fmt.Errorf("at least %d characters", account.MinPasswordLength)
			}
			return nil
		},
	}
	password, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("password prompt: %w", err)
	}
	return password, nil
}

// createAdmin makes the account for email an admin with password. It
// reports whether the account was created.
func createAdmin(db *gorm.DB, email, password string, cost int) (*models.Account, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, errors.New("email is required")
	}
	if len(password) < account.MinPasswordLength {
		return nil, false, fmt.Errorf("password must be at least %d characters", account.MinPasswordLength)
	}

	hash, err := account.HashPassword(password, cost)
	if err != nil {
		return nil, false, fmt.Errorf("hashing password: %w", err)
	}

	var acc models.Account
	err = db.Where("email = ?", email).First(&acc).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		acc = models.Account{Email: email, PasswordHash: hash, IsAdmin: true}
		if err := db.Create(&acc).Error; err != nil {
			return nil, false, fmt.Errorf("creating account: %w", err)
		}
		return &acc, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("loading account: %w", err)
	}

	acc.PasswordHash = hash
	acc.IsAdmin = true
	if err := db.Save(&acc).Error; err != nil {
		return nil, false, fmt.Errorf("updating account: %w", err)
	}
	return &acc, false, nil
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "admin e-mail address")
	adminCreateCmd.MarkFlagRequired("email")
	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}
