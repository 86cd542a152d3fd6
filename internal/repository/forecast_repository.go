package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StationData.influxDB/internal/models"
)

const defaultForecastTable = "forecast_summary"

// ForecastSummaryStore is the relational forecast collaborator.
type ForecastSummaryStore interface {
	Upsert(ctx context.Context, fs models.ForecastSummary) error
	FindByStationAndIssuedBetween(ctx context.Context, stnID int, from, to time.Time) ([]models.ForecastSummary, error)
}

// ForecastSummaryRepository is a Postgres implementation of ForecastSummaryStore.
type ForecastSummaryRepository struct {
	db    DBTX
	table string
}

// ForecastOption configures the repository.
type ForecastOption func(*ForecastSummaryRepository)

// WithForecastTable overrides the default table name.
func WithForecastTable(table string) ForecastOption {
	return func(repo *ForecastSummaryRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewForecastSummaryRepository constructs a repository.
func NewForecastSummaryRepository(db DBTX, opts ...ForecastOption) *ForecastSummaryRepository {
	repo := &ForecastSummaryRepository{db: db, table: defaultForecastTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Upsert inserts fs or, when (tm_fc, stn_id) already exists, overwrites
// every non-key column with the values in fs.
func (r *ForecastSummaryRepository) Upsert(ctx context.Context, fs models.ForecastSummary) error {
	if r == nil || r.db == nil {
		return errors.New("forecast repo: nil db")
	}
	if fs.TmFc.IsZero() {
		return errors.New("forecast repo: empty tm_fc")
	}
	if fs.StnID == 0 {
		return errors.New("forecast repo: empty stn_id")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	tm_fc, stn_id, tm_in, cnt,
	man_fc, man_fc_id, man_in, man_in_id, man_ip,
	wf_sv1, wf_sv2, wf_sv3, wn, wr, rem
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
)
ON CONFLICT (tm_fc, stn_id)
DO UPDATE SET
	tm_in = EXCLUDED.tm_in,
	cnt = EXCLUDED.cnt,
	man_fc = EXCLUDED.man_fc,
	man_fc_id = EXCLUDED.man_fc_id,
	man_in = EXCLUDED.man_in,
	man_in_id = EXCLUDED.man_in_id,
	man_ip = EXCLUDED.man_ip,
	wf_sv1 = EXCLUDED.wf_sv1,
	wf_sv2 = EXCLUDED.wf_sv2,
	wf_sv3 = EXCLUDED.wf_sv3,
	wn = EXCLUDED.wn,
	wr = EXCLUDED.wr,
	rem = EXCLUDED.rem`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		fs.TmFc.UTC(),
		fs.StnID,
		fs.TmIn,
		fs.Cnt,
		fs.ManFc,
		fs.ManFcID,
		fs.ManIn,
		fs.ManInID,
		fs.ManIP,
		fs.WfSv1,
		fs.WfSv2,
		fs.WfSv3,
		fs.Wn,
		fs.Wr,
		fs.Rem,
	)
	if err != nil {
		return fmt.Errorf("forecast repo: upsert: %w", err)
	}
	return nil
}

// FindByStationAndIssuedBetween lists summaries of one office issued in [from, to], oldest first.
func (r *ForecastSummaryRepository) FindByStationAndIssuedBetween(ctx context.Context, stnID int, from, to time.Time) ([]models.ForecastSummary, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("forecast repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, tm_fc, stn_id, tm_in, cnt, man_fc, man_fc_id, man_in, man_in_id, man_ip,
	wf_sv1, wf_sv2, wf_sv3, wn, wr, rem, created_at
FROM %s
WHERE stn_id = $1 AND tm_fc BETWEEN $2 AND $3
ORDER BY tm_fc`, r.table)

	rows, err := r.db.QueryContext(ctx, query, stnID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("forecast repo: query: %w", err)
	}
	defer rows.Close()

	var out []models.ForecastSummary
	for rows.Next() {
		var fs models.ForecastSummary
		if err := rows.Scan(
			&fs.ID,
			&fs.TmFc,
			&fs.StnID,
			&fs.TmIn,
			&fs.Cnt,
			&fs.ManFc,
			&fs.ManFcID,
			&fs.ManIn,
			&fs.ManInID,
			&fs.ManIP,
			&fs.WfSv1,
			&fs.WfSv2,
			&fs.WfSv3,
			&fs.Wn,
			&fs.Wr,
			&fs.Rem,
			&fs.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("forecast repo: scan: %w", err)
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}
