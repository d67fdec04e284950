package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/vango-go/vai-character/pkg/auth"
	"github.com/vango-go/vai-character/pkg/config"
	"github.com/vango-go/vai-character/pkg/roster"
	"github.com/vango-go/vai-character/pkg/transcript"
	"github.com/vango-go/vai-character/pkg/transcript/pgstore"
	character "github.com/vango-go/vai-character/sdk"
)

// tracerName scopes the client spans under the global tracer provider.
const tracerName = "github.com/vango-go/vai-character"

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(viper.New(), path)
}

func setupLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func loadRoster(cfg config.Config) (*roster.Roster, error) {
	if cfg.RosterPath == "" {
		return nil, nil
	}
	return roster.Load(cfg.RosterPath)
}

func tokenProvider(cfg config.Config) (auth.TokenProvider, error) {
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("%s_API_KEY and %s_API_SECRET are required", config.EnvPrefix, config.EnvPrefix)
	}
	return auth.NewHTTPTokenProvider(cfg.Server(), cfg.APIKey, cfg.APISecret, cfg.ResourceID), nil
}

// newClient builds a client for the configured target. extra options are
// applied last.
func newClient(cfg config.Config, logger *slog.Logger, r *roster.Roster, extra ...character.ClientOption) (*character.Client, error) {
	provider, err := tokenProvider(cfg)
	if err != nil {
		return nil, err
	}
	opts := []character.ClientOption{
		character.WithServer(cfg.Server()),
		character.WithTokenProvider(provider),
		character.WithPlayerName(cfg.PlayerName),
		character.WithLanguage(cfg.Language),
		character.WithTickInterval(cfg.TickInterval),
		character.WithBackoff(cfg.BackoffBase, cfg.MaxBackoff),
		character.WithMaxAwaitingAck(cfg.MaxAwaitingAck),
		character.WithConnectTimeout(cfg.ConnectTimeout),
		character.WithLogger(logger),
		character.WithTracer(otel.Tracer(tracerName)),
	}
	if cfg.ConversationID != "" {
		opts = append(opts, character.WithConversation(cfg.ConversationID))
	}
	target, err := sessionTarget(cfg, r)
	if err != nil {
		return nil, err
	}
	opts = append(opts, target)
	return character.NewClient(append(opts, extra...)...), nil
}

// sessionTarget picks what a session loads. Listed characters are loaded
// through the first roster scene holding all of them, or one by one when no
// scene does. Without characters the configured scene is loaded.
func sessionTarget(cfg config.Config, r *roster.Roster) (character.ClientOption, error) {
	switch {
	case len(cfg.Characters) > 0:
		if scene, ok := r.SceneFor(cfg.Characters[0]); ok && scene.Holds(cfg.Characters...) {
			return character.WithScene(scene.Name), nil
		}
		return character.WithCharacters(cfg.Characters...), nil
	case cfg.Scene != "":
		return character.WithScene(cfg.Scene), nil
	default:
		return nil, fmt.Errorf("%s_SCENE or %s_CHARACTERS is required", config.EnvPrefix, config.EnvPrefix)
	}
}

// openTranscript returns the Postgres store when a database is configured
// and an in-memory one otherwise.
func openTranscript(ctx context.Context, cfg config.Config) (transcript.Store, error) {
	if cfg.DatabaseURL == "" {
		return transcript.NewMemoryStore(), nil
	}
	store, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := store.Migrate(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return store, nil
}
