// Package forecast projects metric series forward with a linear trend fit.
package forecast

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/logger"
)

// confidenceBand scales the point estimate into a symmetric percentage
// band: lower = value*0.85, upper = value*1.15. Not a statistical
// prediction interval; for negative values the band inverts
// (lower > upper). Kept as-is for compatibility.
// TODO: replace with a residual-based prediction interval.
const confidenceBand = 0.85

// minLookbackDays is the floor of the historical window.
const minLookbackDays = 30

// Service fits an ordinary-least-squares line over the metric history and
// extrapolates it over the requested horizon.
type Service struct {
	metrics out.MetricsRepository
}

func NewService(metrics out.MetricsRepository) *Service {
	return &Service{metrics: metrics}
}

// Forecast returns horizonDays projected points for the metric, or an empty
// slice when the horizon is non-positive or no history exists. The lookback
// window is max(30, 2*horizonDays) days ending now.
func (s *Service) Forecast(ctx context.Context, metric string, horizonDays int) ([]domain.ForecastPoint, error) {
	if horizonDays <= 0 {
		return []domain.ForecastPoint{}, nil
	}

	lookback := 2 * horizonDays
	if lookback < minLookbackDays {
		lookback = minLookbackDays
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookback)

	series, err := s.metrics.GetSeries(ctx, metric, start, end)
	if err != nil {
		return nil, apperr.DatabaseError("failed to load metric series", err)
	}
	if len(series) == 0 {
		logger.Debug("[Forecast.Forecast] no history for metric=%s", metric)
		return []domain.ForecastPoint{}, nil
	}

	slope, intercept := fitLine(series)
	lastDate := series[len(series)-1].Timestamp

	points := make([]domain.ForecastPoint, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		idx := float64(len(series) + i)
		value := intercept + slope*idx
		points = append(points, domain.ForecastPoint{
			Date:       lastDate.AddDate(0, 0, i+1),
			Value:      value,
			LowerBound: value * confidenceBand,
			UpperBound: value * (2 - confidenceBand),
		})
	}

	logger.Info("[Forecast.Forecast] metric=%s horizon=%d history=%d slope=%.4f",
		metric, horizonDays, len(series), slope)
	return points, nil
}

// fitLine regresses value on the integer time index 0..n-1. A single-point
// series has zero index variance; slope defaults to zero there.
func fitLine(series []domain.MetricPoint) (slope, intercept float64) {
	n := len(series)
	if n == 1 {
		return 0, series[0].Value
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range series {
		xs[i] = float64(i)
		ys[i] = p.Value
	}

	cov, err := stats.CovariancePopulation(xs, ys)
	if err != nil {
		return 0, series[n-1].Value
	}
	varX, err := stats.PopulationVariance(xs)
	if err != nil || varX == 0 {
		return 0, series[n-1].Value
	}

	slope = cov / varX
	meanX := float64(n-1) / 2
	meanY, _ := stats.Mean(ys)
	intercept = meanY - slope*meanX
	return slope, intercept
}
