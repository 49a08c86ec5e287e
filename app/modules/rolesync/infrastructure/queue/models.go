package rolesyncqueue

import (
	"time"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/riverqueue/river"
)

// QueueName is the river queue the rolesync jobs run on.
const QueueName = "rolesync"

// PollJob is the periodic tick that schedules one GuildJob per configured guild.
type PollJob struct{}

// Kind returns the job type identifier for River
func (PollJob) Kind() string { return "rolesync_poll" }

func (PollJob) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueName}
}

// GuildJob requests a POLL reconciliation of one guild.
type GuildJob struct {
	GuildID rolesyncdomain.GuildID `json:"guild_id"`
}

// Kind returns the job type identifier for River
func (GuildJob) Kind() string { return "rolesync_guild" }

// guildJobOpts keeps a guild to one pending job per poll period.
func guildJobOpts(period time.Duration) *river.InsertOpts {
	return &river.InsertOpts{
		Queue:       QueueName,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: period,
		},
	}
}
