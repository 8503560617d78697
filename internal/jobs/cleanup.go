package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/config"
	"github.com/wabridge/relay-server-go/internal/repository"
)

var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CleanupJob prunes handoff log entries older than the retention window on a
// cron schedule.
type CleanupJob struct {
	handoffLogRepo repository.HandoffLogRepository
	retention      time.Duration
	schedule       string
	cron           *cron.Cron
	now            func() time.Time
}

func NewCleanupJob(handoffLogRepo repository.HandoffLogRepository, retention time.Duration, schedule string) *CleanupJob {
	return &CleanupJob{
		handoffLogRepo: handoffLogRepo,
		retention:      retention,
		schedule:       schedule,
		cron:           cron.New(cron.WithParser(scheduleParser)),
		now:            time.Now,
	}
}

func (j *CleanupJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.cleanup); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", j.schedule, err)
	}
	j.cron.Start()
	log.Info().
		Str("schedule", j.schedule).
		Dur("retention", j.retention).
		Msg("cleanup job started")
	return nil
}

// Stop waits for a running cleanup to finish.
func (j *CleanupJob) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), config.RetentionJobTimeout)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	j.runCleanup(ctx, "handoff log entries", func(ctx context.Context) (int64, error) {
		return j.handoffLogRepo.DeleteOlderThan(ctx, cutoff)
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
