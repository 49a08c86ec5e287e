package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	clashevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/clash"
	linkevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/link"
	rolesyncevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/rolesync"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamConfigs lists one stream per event namespace.
func StreamConfigs() []jetstream.StreamConfig {
	names := []string{rolesyncevents.StreamName, clashevents.StreamName, linkevents.StreamName}
	out := make([]jetstream.StreamConfig, 0, len(names))
	for _, name := range names {
		out = append(out, jetstream.StreamConfig{
			Name:     name,
			Subjects: []string{name + ".>"},
		})
	}
	return out
}

// InitializeStreams creates the necessary streams in JetStream during application startup.
func InitializeStreams(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) error {
	for _, streamConfig := range StreamConfigs() {
		_, err := js.Stream(ctx, streamConfig.Name)
		if errors.Is(err, jetstream.ErrStreamNotFound) {
			if _, err := js.CreateStream(ctx, streamConfig); err != nil {
				logger.Error("Failed to create JetStream stream", slog.String("stream", streamConfig.Name), slog.Any("error", err))
				return fmt.Errorf("create stream %s: %w", streamConfig.Name, err)
			}
			logger.Info("Created JetStream stream", slog.String("stream", streamConfig.Name))
		} else if err != nil {
			return fmt.Errorf("failed to check stream: %w", err)
		}
	}
	return nil
}
