package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pavelanni/examreport/internal/store"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users with a stored dataset and how often each was saved",
		RunE:  runUsers,
	}
	f := cmd.Flags()
	f.String("db", "examreport.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

type userEntry struct {
	User    string `json:"user"`
	Version int64  `json:"version"`
}

func runUsers(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := store.NewSQLite(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	entries, err := listUsers(ctx, db)
	if err != nil {
		return err
	}
	return writeJSONTo(v.GetString("output"), entries)
}

func listUsers(ctx context.Context, db *store.SQLiteStore) ([]userEntry, error) {
	users, err := db.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	entries := make([]userEntry, 0, len(users))
	for _, u := range users {
		ver, err := db.Version(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("read version of %s: %w", u, err)
		}
		entries = append(entries, userEntry{User: u, Version: ver})
	}
	return entries, nil
}
