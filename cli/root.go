// ABOUTME: Root cobra command and shared bootstrapping for the claimsync CLI
// ABOUTME: Loads configuration, opens the database and builds the sync components
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harperreed/claimsync/config"
	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/logging"
	"github.com/harperreed/claimsync/storage"
	"github.com/harperreed/claimsync/sync"
	"github.com/harperreed/claimsync/worker"
)

// Version is overridden at build time with -ldflags.
var Version = "0.1.0"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type rootOptions struct {
	configPath string
	dbPath     string
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds a fresh command tree. Tests build their own to run
// commands in isolation.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "claimsync",
		Short: "Replicate insurance claims between linked workspaces",
		Long: `claimsync links a local workspace to workspaces on peer instances and
pushes every claim, with its tasks, inspections, accounting and attachments,
to each linked peer. It also serves the webhooks peers call to push claims here.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: "+config.DefaultConfigPath()+")")
	root.PersistentFlags().StringVar(&opts.dbPath, "db-path", "", "database path, overrides database_path")

	root.AddCommand(
		newServeCmd(opts),
		newSyncCmd(opts),
		newSyncAllCmd(opts),
		newRunsCmd(opts),
		newDashboardCmd(opts),
		newMCPCmd(opts),
		newStatsCmd(opts),
		newLinkCmd(opts),
		newWorkspaceCmd(opts),
		newClaimCmd(opts),
		newUserCmd(opts),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "claimsync version %s\n", Version)
		},
	}
}

// env is what a command needs once configuration is resolved.
type env struct {
	cfg    *config.Config
	db     *sql.DB
	logger *zap.Logger
}

func (e *env) Close() {
	_ = e.logger.Sync()
	_ = e.db.Close()
}

func (o *rootOptions) open() (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.DatabasePath = o.dbPath
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	database, err := db.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &env{cfg: cfg, db: database, logger: logger}, nil
}

// signer returns the attachment signer for cfg. Without a bucket, attachments
// are sent with url_error set instead of a signed url.
func (e *env) signer(ctx context.Context) storage.Signer {
	s3, err := storage.NewS3SignerFromConfig(ctx, storage.Config{
		Bucket:   e.cfg.Storage.Bucket,
		Region:   e.cfg.Storage.Region,
		Endpoint: e.cfg.Storage.Endpoint,
	})
	if err != nil {
		e.logger.Warn("attachment signing disabled", zap.Error(err))
		return storage.Unconfigured{}
	}
	return storage.NewCachingSigner(s3, 10*time.Minute)
}

func (e *env) peerClient() *sync.PeerClient {
	limiter := worker.NewLimiter(e.cfg.Sync.RateLimit, e.cfg.Sync.RateBurst)
	return sync.NewPeerClient(e.cfg.Sync.HTTPTimeout, limiter)
}

func (e *env) initiator(ctx context.Context, client *sync.PeerClient) *sync.Initiator {
	agg := sync.NewAggregator(e.db, e.signer(ctx), e.cfg.Storage.SignedURLTTL, e.logger)
	return sync.NewInitiator(e.db, agg, client, sync.InitiatorConfig{
		BaseURL: e.cfg.BaseURL,
		Workers: e.cfg.Sync.Workers,
	}, e.logger)
}

func requireBaseURL(cfg *config.Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base_url is not configured; set it in %s or CLAIMSYNC_BASE_URL", config.DefaultConfigPath())
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

