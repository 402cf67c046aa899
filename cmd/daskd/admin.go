package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/daskhq/dask/internal/adapter/postgres"
	"github.com/daskhq/dask/internal/config"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/service"
)

// runAdmin dispatches admin subcommands (register, list-identities).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "register":
		return runAdminRegister(args[1:])
	case "list-identities":
		return runAdminListIdentities(args[1:])
	case "rollback":
		return runAdminRollback(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: daskd admin <command> [options]

Commands:
  register          Register an identity and mint its API key
  list-identities   List all registered identities
  rollback          Roll back database migrations
  help              Show this help message

Examples:
  daskd admin register --address 0x00000000000000000000000000000000000000aa
  daskd admin list-identities
  daskd admin rollback --steps 1
`)
}

func loadAdminDeps() (*service.Keyring, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	keyring := service.NewKeyring(postgres.NewStore(pool))
	cleanup := func() {
		pool.Close()
	}
	return keyring, cleanup, nil
}

func runAdminRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	address := fs.String("address", "", "hex account address (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *address == "" {
		return fmt.Errorf("--address is required")
	}
	addr, err := identity.Parse(*address)
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}

	keyring, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	id, key, err := keyring.Register(context.Background(), addr)
	if err != nil {
		return fmt.Errorf("register identity: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Identity registered: %s\n", id.Address)
	fmt.Fprintf(os.Stderr, "API key (shown once, store it now):\n")
	fmt.Println(key)
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := postgres.RollbackMigrations(context.Background(), cfg.Postgres.DSN, *steps); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *steps)
	return nil
}

func runAdminListIdentities(args []string) error {
	fs := flag.NewFlagSet("list-identities", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	keyring, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ids, err := keyring.List(context.Background())
	if err != nil {
		return fmt.Errorf("list identities: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No identities found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ADDRESS\tKEY_PREFIX\tCREATED_AT")
	for i := range ids {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			ids[i].Address, ids[i].KeyPrefix, ids[i].CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
