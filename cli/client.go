package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"unionhall/reconcile"
	"unionhall/remote"
	"unionhall/snapshot"
)

var (
	clientBackend string
	clientToken   string
	clientEmail   string
	clientDB      string
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client-side tools that talk to a running backend",
}

var clientSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load posts, members and settings from the backend into the local snapshot",
	Long: `sync runs the client's load step against a backend and writes what it
gets into the snapshot directory. Collections the backend refuses or cannot
serve keep their previous snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		backend := cfg.Backend
		if clientBackend != "" {
			backend = clientBackend
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		client := remote.NewClient(backend, clientToken)
		if clientEmail != "" {
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			session, err := client.SignIn(ctx, clientEmail, password)
			if err != nil {
				return fmt.Errorf("signing in: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", session.Email, session.Role)
		}

		local, err := openSnapshot(cfg.SnapshotDir, clientDB)
		if err != nil {
			return err
		}
		store := reconcile.New(local, client)
		outcome := store.LoadAll(ctx)
		store.Wait()
		report(cmd.OutOrStdout(), store, outcome)
		return nil
	},
}

// openSnapshot keeps the snapshot in a sqlite file when dbPath is set and as
// JSON files under dir otherwise.
func openSnapshot(dir, dbPath string) (snapshot.Store, error) {
	if dbPath == "" {
		return snapshot.NewFileStore(dir), nil
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db %s: %w", dbPath, err)
	}
	store, err := snapshot.NewDBStore(db)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func report(w io.Writer, store *reconcile.Store, outcome reconcile.Outcome) {
	fmt.Fprintf(w, "posts:    %d\n", len(store.Posts()))
	fmt.Fprintf(w, "trash:    %d\n", len(store.Trash()))
	fmt.Fprintf(w, "members:  %d (%d pending)\n", len(store.Members()), len(store.PendingMembers()))
	settings := "no"
	if store.Settings() != nil {
		settings = "yes"
	}
	fmt.Fprintf(w, "settings: %s\n", settings)
	fmt.Fprintf(w, "status:   %s\n", outcome.Status)
	if outcome.Err != nil {
		fmt.Fprintf(w, "warning:  %v\n", outcome.Err)
	}
}

func init() {
	clientSyncCmd.Flags().StringVar(&clientBackend, "backend", "", "backend base URL (overrides config)")
	clientSyncCmd.Flags().StringVar(&clientToken, "token", "", "Firebase ID token sent as bearer token")
	clientSyncCmd.Flags().StringVar(&clientDB, "db", "", "keep the snapshot in this sqlite file instead of JSON files")
	clientSyncCmd.Flags().StringVar(&clientEmail, "email", "", "sign in with this e-mail first (prompts for the password)")
	clientCmd.AddCommand(clientSyncCmd)
	rootCmd.AddCommand(clientCmd)
}
