package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/blinks/service/db"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "down",
				Usage: "Roll back the most recent migration instead",
			},
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Only print the current schema version",
			},
		},
		Action: func(c *cli.Context) error {
			dbURL, err := databaseURL(c)
			if err != nil {
				return err
			}

			switch {
			case c.Bool("status"):
			case c.Bool("down"):
				if err := db.RollbackMigration(dbURL); err != nil {
					return err
				}
			default:
				if err := db.RunMigrations(dbURL); err != nil {
					return err
				}
			}

			v, dirty, err := db.MigrationVersion(dbURL)
			if err != nil {
				return err
			}
			if wantsJSON(c) {
				return outputJSON(c, map[string]interface{}{"version": v, "dirty": dirty})
			}
			fmt.Fprintf(c.App.Writer, "schema version %d (dirty: %v)\n", v, dirty)
			return nil
		},
	}
}

func listUsersCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-users",
		Usage:   "List all users",
		Aliases: []string{"users"},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			users, err := store.ListUsers(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			if wantsJSON(c) {
				return outputJSON(c, users)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPUBLIC KEY\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.PublicKey, u.CreatedAt.Format(time.RFC3339))
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d users\n", len(users))
			return nil
		},
	}
}

func listBlinksDBCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-blinks",
		Usage:   "List blinks straight from the database",
		Aliases: []string{"blinks"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "owner",
				Aliases: []string{"o"},
				Usage:   "Only blinks owned by this public key",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			var owners []*db.User
			if pk := c.String("owner"); pk != "" {
				u, err := store.GetUserByPublicKey(ctx, pk)
				if err != nil {
					return fmt.Errorf("failed to get owner %s: %w", pk, err)
				}
				owners = []*db.User{u}
			} else {
				owners, err = store.ListUsers(ctx)
				if err != nil {
					return fmt.Errorf("failed to list users: %w", err)
				}
			}

			blinks := []*db.Blink{}
			for _, u := range owners {
				bs, err := store.ListBlinksByUser(ctx, u.ID)
				if err != nil {
					return fmt.Errorf("failed to list blinks of %s: %w", u.PublicKey, err)
				}
				blinks = append(blinks, bs...)
			}

			if wantsJSON(c) {
				return outputJSON(c, blinks)
			}
			printBlinkTable(c, blinks)
			return nil
		},
	}
}

// getStore connects to the database named by --database-url.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL, err := databaseURL(c)
	if err != nil {
		return nil, nil, err
	}

	pool, err := db.NewPool(context.Background(), dbURL)
	if err != nil {
		return nil, nil, err
	}

	return db.NewStore(pool), pool.Close, nil
}

func databaseURL(c *cli.Context) (string, error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return "", fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}
	return dbURL, nil
}
