package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MicahParks/keyfunc"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/api"
	"taskboard/boardview"
	"taskboard/config"
	"taskboard/session"
	"taskboard/storage"
	"taskboard/subscription"
)

// app carries the wiring shared by every command.
type app struct {
	cfg    config.Config
	logger *log.Logger
	store  *session.Store
	redis  *redis.Client
	jwks   *keyfunc.JWKS
}

func main() {
	a := &app{logger: log.StandardLogger()}
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Kanban board client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.boardsCmd(),
		a.boardCmd(),
		a.taskCmd(),
		a.commentCmd(),
		a.inviteCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg
	if cfg.Debug {
		a.logger.SetLevel(log.DebugLevel)
	}

	path := cfg.SessionFile
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return fmt.Errorf("session path: %w", err)
		}
	}
	verifier, err := a.verifier()
	if err != nil {
		return err
	}
	a.store = session.NewStore(path, verifier)

	if cfg.RedisConn != "" {
		opts, err := config.RedisOptions(cfg.RedisConn)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.redis = redis.NewClient(opts)
	}
	return nil
}

func (a *app) verifier() (*session.Verifier, error) {
	switch {
	case a.cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(a.cfg.JWKSURL, keyfunc.Options{})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		a.jwks = jwks
		return session.NewJWKSVerifier(jwks, a.cfg.Audience, a.cfg.Issuer), nil
	case a.cfg.TokenSecret != "":
		return session.NewHMACVerifier([]byte(a.cfg.TokenSecret)), nil
	default:
		return nil, nil
	}
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

// session loads the stored session, failing with a hint when logged out.
func (a *app) session() (session.Session, error) {
	sess, err := a.store.Load()
	if errors.Is(err, session.ErrNoSession) {
		return session.Session{}, errors.New("not logged in, run `taskboard login` first")
	}
	return sess, err
}

func (a *app) client(sess session.Session) *api.Client {
	return api.New(a.cfg.APIURL, sess, api.Options{Logger: a.logger, Timeout: a.cfg.HTTPTimeout})
}

// remote returns the API client, behind the Redis cache when configured.
func (a *app) remote(c *api.Client) boardview.Remote {
	if a.redis == nil {
		return c
	}
	return storage.NewCache(c, a.redis, a.cfg.CacheTTL, a.logger)
}

func (a *app) channel(sess session.Session) subscription.Channel {
	if a.cfg.PushTransport == config.TransportRedis {
		return subscription.NewRedisChannel(a.redis, a.logger)
	}
	return subscription.NewWebSocketChannel(a.cfg.PushURL, sess, a.logger)
}
