package activityrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
)

// PostgresRepository reads activity entries from the platform's Postgres
// replica using pgx. Values come back loosely typed on purpose; the domain
// normalizer owns all coercion.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Activities implements analytics.ActivityReader.
func (r *PostgresRepository) Activities(ctx context.Context, tenant string, f analytics.Filters) ([]analytics.RawActivity, error) {
	query := `
		SELECT id, activity_type, activity_name, category, co2e_kg, scope,
		       scope_label, quantity, unit, to_char(activity_date, 'YYYY-MM-DD')
		FROM activities
		WHERE tenant_id = $1
		  AND ($2::date IS NULL OR activity_date IS NULL OR activity_date >= $2)
		  AND ($3::date IS NULL OR activity_date IS NULL OR activity_date <= $3)
		  AND ($4::text IS NULL OR category = $4)
		ORDER BY activity_date NULLS LAST, id
	`
	rows, err := r.pool.Query(ctx, query, tenant,
		nullableDate(f.Window.From), nullableDate(f.Window.To), nullableText(f.Category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]analytics.RawActivity, 0)
	for rows.Next() {
		raw, err := scanRawActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func scanRawActivity(rows pgx.Rows) (analytics.RawActivity, error) {
	var (
		raw          analytics.RawActivity
		activityType *string
		activityName *string
		category     *string
		scopeLabel   *string
		unit         *string
		date         *string
	)
	err := rows.Scan(&raw.ID, &activityType, &activityName, &category,
		&raw.EmissionsKg, &raw.ScopeNumber, &scopeLabel, &raw.Quantity, &unit, &date)
	if err != nil {
		return analytics.RawActivity{}, err
	}
	raw.ActivityType = derefString(activityType)
	raw.ActivityName = derefString(activityName)
	raw.Category = derefString(category)
	raw.ScopeLabel = derefString(scopeLabel)
	raw.Unit = derefString(unit)
	raw.Date = derefString(date)
	return raw, nil
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ analytics.ActivityReader = (*PostgresRepository)(nil)
