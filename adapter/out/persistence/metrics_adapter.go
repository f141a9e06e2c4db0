package persistence

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
)

// =============================================================================
// Metrics Adapter (PostgreSQL)
// =============================================================================

// MetricsAdapter implements out.MetricsRepository over the daily_metrics
// table populated by the sync worker.
type MetricsAdapter struct {
	db *sqlx.DB
}

func NewMetricsAdapter(db *sqlx.DB) *MetricsAdapter {
	return &MetricsAdapter{db: db}
}

type metricRow struct {
	RecordedAt time.Time `db:"recorded_at"`
	Value      float64   `db:"value"`
}

func (a *MetricsAdapter) GetSeries(ctx context.Context, metric string, start, end time.Time) ([]domain.MetricPoint, error) {
	query := `
		SELECT recorded_at, value
		FROM daily_metrics
		WHERE metric_name = $1 AND recorded_at BETWEEN $2 AND $3
		ORDER BY recorded_at ASC`

	var rows []metricRow
	if err := a.db.SelectContext(ctx, &rows, query, metric, start, end); err != nil {
		return nil, apperr.DatabaseError("failed to load metric series", err)
	}

	points := make([]domain.MetricPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, domain.MetricPoint{Timestamp: r.RecordedAt, Value: r.Value})
	}
	return points, nil
}
