package cli

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"unionhall/email"
	"unionhall/models"
)

var pendingOnly bool

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List and approve members",
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List members, pending approvals first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		return listMembers(cmd.OutOrStdout(), db, pendingOnly)
	},
}

var membersApproveCmd = &cobra.Command{
	Use:   "approve <member-id>",
	Short: "Approve a pending member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}

		member, changed, err := approveMember(db, args[0])
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is already approved\n", member.Name)
			return nil
		}
		if member.Email != "" {
			if err := email.NewEmailService(cfg).SendApproved(member.Email, member.Name); err != nil {
				log.Printf("Error sending approval mail to %s: %v", member.Email, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Approved %s (%s)\n", member.Name, member.ID)
		return nil
	},
}

func listMembers(w io.Writer, db *gorm.DB, pending bool) error {
	query := db.Order("is_approved ASC").Order("signup_at DESC")
	if pending {
		query = query.Where("is_approved = ?", false)
	}
	var members []models.Member
	if err := query.Find(&members).Error; err != nil {
		return fmt.Errorf("loading members: %w", err)
	}

	if len(members) == 0 {
		fmt.Fprintln(w, "No members.")
		return nil
	}
	for _, m := range members {
		status := "approved"
		if !m.IsApproved {
			status = "pending"
		}
		fmt.Fprintf(w, "%-36s  %-8s  %-20s  %-12s  %s\n", m.ID, status, m.Name, m.Garage, m.Email)
	}
	return nil
}

// approveMember marks a member approved and reports whether it was pending.
func approveMember(db *gorm.DB, id string) (*models.Member, bool, error) {
	var member models.Member
	if err := db.First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("member %s not found", id)
		}
		return nil, false, fmt.Errorf("loading member: %w", err)
	}
	if member.IsApproved {
		return &member, false, nil
	}
	if err := db.Model(&member).Update("is_approved", true).Error; err != nil {
		return nil, false, fmt.Errorf("approving member: %w", err)
	}
	member.IsApproved = true
	return &member, true, nil
}

func init() {
	membersListCmd.Flags().BoolVar(&pendingOnly, "pending", false, "only list members awaiting approval")
	membersCmd.AddCommand(membersListCmd)
	membersCmd.AddCommand(membersApproveCmd)
	rootCmd.AddCommand(membersCmd)
}
