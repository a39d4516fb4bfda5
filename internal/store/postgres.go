package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/db"
	"github.com/sells-group/placemap/internal/geometry"
	"github.com/sells-group/placemap/internal/model"
)

// migrationLockID serializes concurrent Migrate calls across processes.
const migrationLockID = 7340115

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS places (
	id                      TEXT PRIMARY KEY,
	name                    TEXT NOT NULL DEFAULT '',
	street_address          TEXT NOT NULL DEFAULT '',
	city                    TEXT NOT NULL DEFAULT '',
	state                   TEXT NOT NULL DEFAULT '',
	logo                    TEXT NOT NULL DEFAULT '',
	longitude               DOUBLE PRECISION NOT NULL,
	latitude                DOUBLE PRECISION NOT NULL,
	sub_category            TEXT NOT NULL DEFAULT '',
	istradeareaavailable    BOOLEAN NOT NULL DEFAULT false,
	ishomezipcodesavailable BOOLEAN NOT NULL DEFAULT false,
	ismyplace               BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS trade_areas (
	id         BIGSERIAL PRIMARY KEY,
	pid        TEXT NOT NULL,
	trade_area INTEGER NOT NULL,
	polygon    JSONB
);

CREATE TABLE IF NOT EXISTS home_zipcodes (
	place_id  TEXT PRIMARY KEY,
	locations JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS zipcodes (
	id      TEXT PRIMARY KEY,
	polygon JSONB
);

CREATE INDEX IF NOT EXISTS idx_places_ismyplace ON places(ismyplace) WHERE ismyplace;
CREATE INDEX IF NOT EXISTS idx_places_sub_category ON places(sub_category);
CREATE INDEX IF NOT EXISTS idx_trade_areas_pid ON trade_areas(pid);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "postgres: acquire migration lock")
	}
	defer func() {
		if _, err := s.pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			zap.L().Warn("postgres: failed to release migration lock", zap.Error(err))
		}
	}()

	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const selectPlaces = `SELECT id, name, street_address, city, state, logo, longitude, latitude, sub_category, istradeareaavailable, ishomezipcodesavailable, ismyplace FROM places`

func (s *PostgresStore) ListPlaces(ctx context.Context) ([]model.Place, error) {
	rows, err := s.pool.Query(ctx, selectPlaces+" ORDER BY id")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list places")
	}
	defer rows.Close()

	var places []model.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan place")
		}
		places = append(places, p)
	}
	return places, eris.Wrap(rows.Err(), "postgres: iterate places")
}

func (s *PostgresStore) ReferencePlace(ctx context.Context) (*model.Place, error) {
	p, err := scanPlace(s.pool.QueryRow(ctx, selectPlaces+" WHERE ismyplace ORDER BY id LIMIT 1"))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "postgres: reference place")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: reference place")
	}
	return &p, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT sub_category FROM places WHERE sub_category <> '' ORDER BY sub_category`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list categories")
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category")
		}
		cats = append(cats, c)
	}
	return cats, eris.Wrap(rows.Err(), "postgres: iterate categories")
}

func (s *PostgresStore) TradeAreas(ctx context.Context, placeID string) ([]model.TradeArea, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pid, trade_area, polygon FROM trade_areas WHERE pid = $1 ORDER BY trade_area, id`, placeID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: trade areas for %s", placeID)
	}
	defer rows.Close()

	var areas []model.TradeArea
	for rows.Next() {
		var (
			ta      model.TradeArea
			polygon []byte
		)
		if err := rows.Scan(&ta.PlaceID, &ta.Level, &polygon); err != nil {
			return nil, eris.Wrap(err, "postgres: scan trade area")
		}
		ta.Polygon = geometry.ParsePolygon(polygon)
		areas = append(areas, ta)
	}
	return areas, eris.Wrap(rows.Err(), "postgres: iterate trade areas")
}

func (s *PostgresStore) HomeZipcodes(ctx context.Context, placeID string) (*model.HomeZipcodes, error) {
	var (
		hz        model.HomeZipcodes
		locations []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT place_id, locations FROM home_zipcodes WHERE place_id = $1`, placeID).
		Scan(&hz.PlaceID, &locations)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: home zipcodes for %s", placeID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: home zipcodes for %s", placeID)
	}
	if err := hz.Locations.UnmarshalJSON(locations); err != nil {
		return nil, eris.Wrap(err, "postgres: decode locations")
	}
	return &hz, nil
}

func (s *PostgresStore) ZipcodePolygons(ctx context.Context, ids []string) ([]model.Zipcode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, polygon FROM zipcodes WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: zipcode polygons")
	}
	defer rows.Close()

	var zips []model.Zipcode
	for rows.Next() {
		var (
			z       model.Zipcode
			polygon []byte
		)
		if err := rows.Scan(&z.ID, &polygon); err != nil {
			return nil, eris.Wrap(err, "postgres: scan zipcode")
		}
		z.Polygon = geometry.ParsePolygon(polygon)
		zips = append(zips, z)
	}
	return zips, eris.Wrap(rows.Err(), "postgres: iterate zipcodes")
}

func (s *PostgresStore) ImportPlaces(ctx context.Context, places []model.Place) (int64, error) {
	rows := make([][]any, len(places))
	for i, p := range places {
		rows[i] = placeRow(p)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "places",
		Columns:      placeColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import places")
}

// ImportTradeAreas replaces every trade area of the places present in areas.
func (s *PostgresStore) ImportTradeAreas(ctx context.Context, areas []model.TradeArea) (int64, error) {
	rows := make([][]any, 0, len(areas))
	for _, a := range areas {
		polygon, err := encodePolygon(a.Polygon)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{a.PlaceID, a.Level, polygon})
	}
	n, err := db.ReplaceByKey(ctx, s.pool, "trade_areas", "pid", distinctPlaceIDs(areas),
		[]string{"pid", "trade_area", "polygon"}, rows)
	return n, eris.Wrap(err, "postgres: import trade areas")
}

func (s *PostgresStore) ImportHomeZipcodes(ctx context.Context, records []model.HomeZipcodes) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		locations, err := encodeLocations(r.Locations)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{r.PlaceID, locations})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "home_zipcodes",
		Columns:      []string{"place_id", "locations"},
		ConflictKeys: []string{"place_id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import home zipcodes")
}

func (s *PostgresStore) ImportZipcodes(ctx context.Context, zipcodes []model.Zipcode) (int64, error) {
	rows := make([][]any, 0, len(zipcodes))
	for _, z := range zipcodes {
		polygon, err := encodePolygon(z.Polygon)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{z.ID, polygon})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "zipcodes",
		Columns:      []string{"id", "polygon"},
		ConflictKeys: []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import zipcodes")
}
