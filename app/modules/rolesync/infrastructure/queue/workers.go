package rolesyncqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	rolesyncevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/rolesync"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// GuildLister returns the guilds with at least one linked clan.
type GuildLister interface {
	ConfiguredGuilds(ctx context.Context) ([]rolesyncdomain.GuildID, error)
}

type jobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// PollWorker fans a poll tick out into guild jobs.
type PollWorker struct {
	river.WorkerDefaults[PollJob]
	guilds   GuildLister
	period   time.Duration
	logger   *slog.Logger
	inserter jobInserter
}

func NewPollWorker(logger *slog.Logger, guilds GuildLister, period time.Duration) *PollWorker {
	return &PollWorker{
		guilds: guilds,
		period: period,
		logger: logger,
	}
}

func (w *PollWorker) Work(ctx context.Context, job *river.Job[PollJob]) error {
	guildIDs, err := w.guilds.ConfiguredGuilds(ctx)
	if err != nil {
		return fmt.Errorf("list configured guilds: %w", err)
	}

	inserter := w.inserter
	if inserter == nil {
		client, err := river.ClientFromContextSafely[pgx.Tx](ctx)
		if err != nil {
			return fmt.Errorf("river client: %w", err)
		}
		inserter = client
	}

	scheduled := 0
	for _, guildID := range guildIDs {
		res, err := inserter.Insert(ctx, GuildJob{GuildID: guildID}, guildJobOpts(w.period))
		if err != nil {
			return fmt.Errorf("schedule guild %s: %w", guildID, err)
		}
		if !res.UniqueSkippedAsDuplicate {
			scheduled++
		}
	}

	w.logger.InfoContext(ctx, "Scheduled guild polls",
		slog.Int64("job_id", job.ID),
		slog.Int("guilds", len(guildIDs)),
		slog.Int("scheduled", scheduled),
	)
	return nil
}

// GuildWorker publishes a POLL reconcile request for its guild. The request
// goes through the gate like any other trigger.
type GuildWorker struct {
	river.WorkerDefaults[GuildJob]
	publisher message.Publisher
	logger    *slog.Logger
}

func NewGuildWorker(logger *slog.Logger, publisher message.Publisher) *GuildWorker {
	return &GuildWorker{
		publisher: publisher,
		logger:    logger,
	}
}

func (w *GuildWorker) Work(ctx context.Context, job *river.Job[GuildJob]) error {
	msg, err := handlerwrapper.NewMessage(handlerwrapper.Result{
		Topic: rolesyncevents.GuildReconcileRequestedV1,
		Payload: rolesyncevents.GuildReconcileRequestedPayloadV1{
			GuildID: string(job.Args.GuildID),
			Trigger: string(rolesyncdomain.TriggerPoll),
		},
		Metadata: map[string]string{"guild_id": string(job.Args.GuildID)},
	}, "")
	if err != nil {
		return err
	}

	if err := w.publisher.Publish(rolesyncevents.GuildReconcileRequestedV1, msg); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish poll request",
			slog.String("guild_id", string(job.Args.GuildID)),
			slog.Int("attempt", job.Attempt),
			slog.Any("error", err),
		)
		return fmt.Errorf("publish poll request: %w", err)
	}
	return nil
}

// Timeout bounds one publish.
func (w *GuildWorker) Timeout(*river.Job[GuildJob]) time.Duration { return 30 * time.Second }
