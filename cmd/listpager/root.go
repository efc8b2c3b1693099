package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/listpager/internal/config"
	"github.com/Sternrassler/listpager/pkg/client"
	"github.com/Sternrassler/listpager/pkg/feeds"
	"github.com/Sternrassler/listpager/pkg/logging"
	"github.com/Sternrassler/listpager/pkg/paging"
	"github.com/Sternrassler/listpager/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by all commands.
type rootOptions struct {
	configPath string
	logLevel   string
	pretty     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "listpager",
		Short: "Paginated list screens for the content API",
		Long: `listpager drives the paginated list screens of the content API
(home feed, search, favorites, merchants, ...) from the command line or as a
headless HTTP host.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error, disabled)")
	cmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "Human-readable console logs")

	cmd.AddCommand(
		newBrowseCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// app holds the collaborators built from configuration.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	redis   *redis.Client
	client  *client.Client
	session *session.Broadcaster
}

// setup loads configuration, configures logging and connects to Redis when
// configured.
func (o *rootOptions) setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		if _, err := logging.ParseLevel(o.logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = o.logLevel
	}
	cfg.Log.Pretty = cfg.Log.Pretty || o.pretty

	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)

	a := &app{cfg: cfg, logger: logging.NewLogger("cli")}

	var rdb redis.UniversalClient
	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}
	if redisOpts != nil {
		a.redis = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", redisOpts.Addr, err)
		}
		a.logger.Info().Str("addr", redisOpts.Addr).Msg("Connected to Redis")
		rdb = a.redis
	}

	a.client, err = client.New(cfg.Client(rdb))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create client: %w", err)
	}

	sessionCfg := session.DefaultConfig()
	sessionCfg.Redis = rdb
	a.session = session.NewBroadcaster(sessionCfg, logging.NewLogger("session"))

	return a, nil
}

// deps are the collaborators handed to every screen engine.
func (a *app) deps() feeds.Deps {
	return feeds.Deps{
		Getter:  a.client,
		Source:  a.cfg.Source(),
		Options: []paging.Option{paging.WithSessionNotifier(a.session)},
	}
}

// Close releases the client and Redis connection.
func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// selectionFlags are the filter flags of browse, export and serve.
type selectionFlags struct {
	sel feeds.Selection
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sel.CityCode, "city", "", "City code")
	cmd.Flags().StringVar(&f.sel.Keyword, "keyword", "", "Search keyword (search screen)")
	cmd.Flags().StringVar(&f.sel.Category, "category", "", "Merchant category (merchants screen)")
	cmd.Flags().StringVar(&f.sel.Sort, "sort", "", "Sort order (latest, popular, nearby)")
}

func screenArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	if _, ok := feeds.Lookup(args[0]); !ok {
		return fmt.Errorf("unknown screen %q (available: %v)", args[0], feeds.Names())
	}
	return nil
}
