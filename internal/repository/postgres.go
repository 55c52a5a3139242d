package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stellaephile/whats-up-doc/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// facilityColumns is the projection shared by every facility query
const facilityColumns = `
	id, hospital_name, hospital_category, hospital_care_type, discipline, COALESCE(ayush, FALSE) AS ayush,
	state, district, pincode, address,
	ST_Y(location::geometry) AS lat, ST_X(location::geometry) AS lon,
	specialties_array, facilities_array,
	COALESCE(emergency_available, FALSE) AS emergency_available,
	emergency_num, ambulance_phone, bloodbank_phone, telephone, mobile_number,
	total_beds, COALESCE(data_quality_norm, 0) AS data_quality_norm`

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute) // Close idle connections sooner

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// PincodeCentroid averages the coordinates of all located facilities in a pincode
func (r *PostgresRepository) PincodeCentroid(ctx context.Context, pincode string) (*model.Centroid, error) {
	var row struct {
		Lat sql.NullFloat64 `db:"lat"`
		Lng sql.NullFloat64 `db:"lng"`
	}
	query := `
		SELECT AVG(ST_Y(location::geometry)) AS lat, AVG(ST_X(location::geometry)) AS lng
		FROM hospitals
		WHERE pincode = $1 AND location IS NOT NULL
	`
	if err := r.db.GetContext(ctx, &row, query, pincode); err != nil {
		return nil, fmt.Errorf("failed to resolve pincode %s: %w", pincode, err)
	}
	// AVG over zero rows is NULL
	if !row.Lat.Valid || !row.Lng.Valid {
		return nil, fmt.Errorf("%w: pincode %s", model.ErrNotFound, pincode)
	}
	return &model.Centroid{Lat: row.Lat.Float64, Lng: row.Lng.Float64}, nil
}

// NearbyFacilities runs one radius search around the query centroid
func (r *PostgresRepository) NearbyFacilities(ctx context.Context, q model.FacilityQuery) ([]model.Facility, error) {
	query, args := buildNearbyQuery(q)

	var facilities []model.Facility
	if err := r.db.SelectContext(ctx, &facilities, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search facilities within %dm: %w", q.RadiusM, err)
	}
	return facilities, nil
}

// buildNearbyQuery renders the PostGIS radius search for q. Care type NULL
// passes the care-type filter so unlabelled facilities are never hidden.
func buildNearbyQuery(q model.FacilityQuery) (string, []any) {
	// $1 lng, $2 lat, $3 radius
	args := []any{q.Centroid.Lng, q.Centroid.Lat, q.RadiusM}
	argIndex := 4

	point := "ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography"
	whereClauses := []string{
		"location IS NOT NULL",
		fmt.Sprintf("ST_DWithin(location, %s, $3)", point),
	}

	whereClauses = append(whereClauses, fmt.Sprintf("data_quality_norm >= $%d", argIndex))
	args = append(args, q.MinQuality)
	argIndex++

	if len(q.CareTypes) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("(hospital_care_type = ANY($%d) OR hospital_care_type IS NULL)", argIndex))
		args = append(args, pq.Array(q.CareTypes))
		argIndex++
	}
	if q.EmergencyOnly {
		whereClauses = append(whereClauses, "emergency_available = TRUE")
	}

	query := fmt.Sprintf(`
		SELECT %s,
			ROUND((ST_Distance(location, %s) / 1000)::numeric, 2) AS distance_km
		FROM hospitals
		WHERE %s
		ORDER BY distance_km ASC, data_quality_norm DESC, id ASC
		LIMIT $%d
	`, facilityColumns, point, strings.Join(whereClauses, " AND "), argIndex)
	args = append(args, q.Limit)

	return query, args
}

// GetFacilityByID retrieves a single facility by its ID
func (r *PostgresRepository) GetFacilityByID(ctx context.Context, id int64) (*model.Facility, error) {
	var facility model.Facility
	query := fmt.Sprintf(`SELECT %s, 0::float8 AS distance_km FROM hospitals WHERE id = $1`, facilityColumns)
	err := r.db.GetContext(ctx, &facility, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: facility %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get facility: %w", err)
	}
	return &facility, nil
}

// BatchUpdateEmbeddings stores profile embeddings for multiple facilities.
// Each row runs under its own savepoint, so a failed row is rolled back
// alone and the rest of the batch still commits.
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.FacilityEmbedding) (int, []string) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to start transaction: %v", err)}
	}
	defer tx.Rollback()

	success, errs := updateEmbeddingRows(ctx, tx, items)

	if err := tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errs
	}

	return success, errs
}

// execer is the part of *sqlx.Tx the row updates need
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	updateEmbeddingSQL = `UPDATE hospitals SET profile_embedding = $1 WHERE id = $2`
	savepointSQL       = `SAVEPOINT embedding_row`
	rollbackRowSQL     = `ROLLBACK TO SAVEPOINT embedding_row`
	releaseRowSQL      = `RELEASE SAVEPOINT embedding_row`
)

// updateEmbeddingRows applies each embedding inside a savepoint. A row that
// fails is rolled back to its savepoint and reported; the transaction stays
// usable for the next row. An error managing the savepoint itself aborts the
// remaining rows.
func updateEmbeddingRows(ctx context.Context, tx execer, items []model.FacilityEmbedding) (int, []string) {
	success := 0
	var errs []string

	for i, item := range items {
		if _, err := tx.ExecContext(ctx, savepointSQL); err != nil {
			errs = append(errs, fmt.Sprintf("facility_id %d: failed to create savepoint: %v", item.FacilityID, err))
			return success, append(errs, skippedRows(items[i+1:])...)
		}

		res, err := tx.ExecContext(ctx, updateEmbeddingSQL, pgvector.NewVector(item.Embedding), item.FacilityID)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				err = errors.New("not found")
			}
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("facility_id %d: %v", item.FacilityID, err))
			if _, rbErr := tx.ExecContext(ctx, rollbackRowSQL); rbErr != nil {
				errs = append(errs, fmt.Sprintf("failed to roll back savepoint: %v", rbErr))
				return success, append(errs, skippedRows(items[i+1:])...)
			}
			continue
		}

		if _, err := tx.ExecContext(ctx, releaseRowSQL); err != nil {
			errs = append(errs, fmt.Sprintf("facility_id %d: failed to release savepoint: %v", item.FacilityID, err))
			return success, append(errs, skippedRows(items[i+1:])...)
		}
		success++
	}

	return success, errs
}

func skippedRows(items []model.FacilityEmbedding) []string {
	errs := make([]string, 0, len(items))
	for _, item := range items {
		errs = append(errs, fmt.Sprintf("facility_id %d: skipped", item.FacilityID))
	}
	return errs
}
