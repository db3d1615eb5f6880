package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/tracktime-io/tracktime/internal/config"
	"github.com/tracktime-io/tracktime/internal/crypto"
	"github.com/tracktime-io/tracktime/internal/jira"
	"github.com/tracktime-io/tracktime/internal/repository"
	"github.com/tracktime-io/tracktime/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "tracktime",
	Short:   "Tracktime CLI - Jira worklog synchronization utilities",
	Long:    `Operator utilities for the Tracktime sync service: trigger bulk synchronization runs and inspect stored OAuth tokens.`,
	Version: version.Full(),
}

var (
	configPathFlag   string
	userIDFlag       int
	ticketSystemFlag int
	limitFlag        int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a bulk worklog sync",
	Long: `Synchronize unsynced time entries against their Jira ticket systems.

Without --user the run covers every user holding a usable token on every
Jira ticket system with time booking enabled.`,
	RunE: runSync,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List stored OAuth tokens per ticket system",
	RunE:  runTokens,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "config.yaml", "Path to the configuration file")

	syncCmd.Flags().IntVar(&userIDFlag, "user", 0, "Sync only this user id")
	syncCmd.Flags().IntVar(&ticketSystemFlag, "ticket-system", 0, "Sync only this ticket system id (requires --user)")
	syncCmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum entries per user (0 = unbounded)")

	tokensCmd.Flags().IntVar(&userIDFlag, "user", 0, "List tokens of this user id (required)")
	tokensCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(tokensCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*sql.DB, *jira.IntegrationService, *repository.SQLTokenRepository, error) {
	if err := config.Load(configPathFlag); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := config.Get()

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	tokenRepo := repository.NewSQLTokenRepository(db)
	entryRepo := repository.NewSQLEntryRepository(db)
	ticketSystemRepo := repository.NewSQLTicketSystemRepository(db)
	userRepo := repository.NewSQLUserRepository(db)

	cipher := crypto.NewTokenCipher(cfg.Jira.TokenSecret)
	authService := jira.NewAuthService(tokenRepo, cipher, cfg.Jira.CallbackURL, cfg.Jira.RequestTimeout)
	clientService := jira.NewHTTPClientService(authService, cfg.Jira.RequestTimeout)
	ticketService := jira.NewTicketService(clientService)
	worklogService := jira.NewWorklogService(clientService, authService, ticketService, entryRepo)

	integrationService := jira.NewIntegrationService(
		worklogService, authService, ticketSystemRepo, tokenRepo, userRepo, jira.NewLocalSyncLocker(),
	)

	return db, integrationService, tokenRepo, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	db, integration, _, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if userIDFlag == 0 {
		integration.SyncAll(ctx, limitFlag)
		fmt.Println("bulk sync finished")
		return nil
	}

	if ticketSystemFlag == 0 {
		return fmt.Errorf("--ticket-system is required with --user")
	}

	userRepo := repository.NewSQLUserRepository(db)
	user, err := userRepo.GetByID(userIDFlag)
	if err != nil {
		return fmt.Errorf("unknown user %d: %w", userIDFlag, err)
	}

	ticketSystemRepo := repository.NewSQLTicketSystemRepository(db)
	ts, err := ticketSystemRepo.GetByID(ticketSystemFlag)
	if err != nil {
		return fmt.Errorf("unknown ticket system %d: %w", ticketSystemFlag, err)
	}

	synced, err := integration.SyncUser(ctx, user, ts, limitFlag)
	if err != nil {
		return err
	}

	fmt.Printf("synced %d entries for user %d on %s\n", synced, user.ID, ts.Name)
	return nil
}

func runTokens(cmd *cobra.Command, args []string) error {
	db, _, tokenRepo, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := tokenRepo.ListByUser(userIDFlag)
	if err != nil {
		return err
	}

	if len(tokens) == 0 {
		fmt.Printf("no tokens stored for user %d\n", userIDFlag)
		return nil
	}

	for _, token := range tokens {
		state := "authorized"
		if token.AvoidConnection {
			state = "pending authorization"
		}
		fmt.Printf("ticket system %d: %s (since %s)\n",
			token.TicketSystemID, state, token.ChangeTime.Format(time.RFC3339))
	}

	return nil
}
