package attachments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ReferenceSource lists the URLs currently referenced by image blocks.
type ReferenceSource interface {
	ImageSources(ctx context.Context) ([]string, error)
}

// Janitor removes attachments no image block references once they are
// older than a grace period. The grace period covers uploads whose image
// block has not been saved yet.
type Janitor struct {
	store    Provider
	refs     ReferenceSource
	grace    time.Duration
	logger   *slog.Logger
	now      func() time.Time
	onDelete func(name string)
}

// NewJanitor creates a Janitor. onDelete, if non-nil, is called for every pruned object.
func NewJanitor(store Provider, refs ReferenceSource, grace time.Duration, logger *slog.Logger, onDelete func(name string)) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		store:    store,
		refs:     refs,
		grace:    grace,
		logger:   logger,
		now:      time.Now,
		onDelete: onDelete,
	}
}

// ValidateSchedule reports whether expr is a valid standard cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return nil
}

// Sweep deletes unreferenced attachments past the grace period and returns how many it removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	srcs, err := j.refs.ImageSources(ctx)
	if err != nil {
		return 0, fmt.Errorf("attachments: janitor refs: %w", err)
	}
	referenced := make(map[string]bool, len(srcs))
	for _, src := range srcs {
		if name, ok := NameFromURL(src); ok {
			referenced[name] = true
		}
	}

	objs, err := j.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("attachments: janitor list: %w", err)
	}

	cutoff := j.now().Add(-j.grace)
	removed := 0
	for _, o := range objs {
		if referenced[o.Name] || o.ModTime.After(cutoff) {
			continue
		}
		if err := j.store.Delete(ctx, o.Name); err != nil {
			j.logger.Warn("janitor: delete failed", slog.String("name", o.Name), slog.String("error", err.Error()))
			continue
		}
		removed++
		j.logger.Debug("janitor: pruned", slog.String("name", o.Name))
		if j.onDelete != nil {
			j.onDelete(o.Name)
		}
	}
	return removed, nil
}

// Run schedules Sweep on a cron expression and blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := j.Sweep(ctx)
		if err != nil {
			j.logger.Error("janitor: sweep failed", slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			j.logger.Info("janitor: sweep done", slog.Int("removed", n))
		}
	})
	if err != nil {
		return fmt.Errorf("attachments: janitor schedule %q: %w", schedule, err)
	}
	c.Start()
	j.logger.Info("janitor: scheduled", slog.String("schedule", schedule), slog.Duration("grace", j.grace))

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("janitor: stopped")
	return nil
}
