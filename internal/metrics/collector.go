package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm/schema"

	"memoria/internal/core"
)

var tableCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "memoria_table_estimated_count",
	Help: "Estimated record count for a table.",
}, []string{"table"})

// Collector periodically publishes the size of the feed tables.
type Collector struct {
	DB     core.DB
	Logger *slog.Logger

	// Interval defaults to 15 seconds.
	Interval time.Duration
}

func (c *Collector) Init(_ context.Context) error {
	c.Logger = c.Logger.With("component", "metrics.Collector")
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
	return nil
}

func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect refreshes every table gauge once. Failures are logged and the
// previous value is kept.
func (c *Collector) Collect(ctx context.Context) {
	c.Logger.Debug("Collecting metrics")

	for _, tabler := range []schema.Tabler{core.Post{}, core.Reshare{}, core.User{}} {
		if err := c.collectTableEstimatedCount(ctx, tabler); err != nil {
			c.Logger.Warn("Cannot estimate table size", "table", tabler.TableName(), "error", err)
		}
	}
}

func (c *Collector) collectTableEstimatedCount(ctx context.Context, tabler schema.Tabler) error {
	count, err := c.DB.EstimatedCount(ctx, tabler.TableName())
	if err != nil {
		return err
	}
	tableCount.WithLabelValues(tabler.TableName()).Set(float64(count))
	return nil
}
