package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/placemap/internal/geometry"
	"github.com/sells-group/placemap/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS places (
	id                      TEXT PRIMARY KEY,
	name                    TEXT NOT NULL DEFAULT '',
	street_address          TEXT NOT NULL DEFAULT '',
	city                    TEXT NOT NULL DEFAULT '',
	state                   TEXT NOT NULL DEFAULT '',
	logo                    TEXT NOT NULL DEFAULT '',
	longitude               REAL NOT NULL,
	latitude                REAL NOT NULL,
	sub_category            TEXT NOT NULL DEFAULT '',
	istradeareaavailable    INTEGER NOT NULL DEFAULT 0,
	ishomezipcodesavailable INTEGER NOT NULL DEFAULT 0,
	ismyplace               INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trade_areas (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	pid        TEXT NOT NULL,
	trade_area INTEGER NOT NULL,
	polygon    TEXT
);

CREATE TABLE IF NOT EXISTS home_zipcodes (
	place_id  TEXT PRIMARY KEY,
	locations TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS zipcodes (
	id      TEXT PRIMARY KEY,
	polygon TEXT
);

CREATE INDEX IF NOT EXISTS idx_places_sub_category ON places(sub_category);
CREATE INDEX IF NOT EXISTS idx_trade_areas_pid ON trade_areas(pid);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListPlaces(ctx context.Context) ([]model.Place, error) {
	rows, err := s.db.QueryContext(ctx, selectPlaces+" ORDER BY id")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list places")
	}
	defer rows.Close() //nolint:errcheck

	var places []model.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}
		places = append(places, p)
	}
	return places, eris.Wrap(rows.Err(), "sqlite: iterate places")
}

func (s *SQLiteStore) ReferencePlace(ctx context.Context) (*model.Place, error) {
	p, err := scanPlace(s.db.QueryRowContext(ctx, selectPlaces+" WHERE ismyplace = 1 ORDER BY id LIMIT 1"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite: reference place")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: reference place")
	}
	return &p, nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT sub_category FROM places WHERE sub_category <> '' ORDER BY sub_category`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list categories")
	}
	defer rows.Close() //nolint:errcheck

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category")
		}
		cats = append(cats, c)
	}
	return cats, eris.Wrap(rows.Err(), "sqlite: iterate categories")
}

func (s *SQLiteStore) TradeAreas(ctx context.Context, placeID string) ([]model.TradeArea, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pid, trade_area, polygon FROM trade_areas WHERE pid = ? ORDER BY trade_area, id`, placeID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: trade areas for %s", placeID)
	}
	defer rows.Close() //nolint:errcheck

	var areas []model.TradeArea
	for rows.Next() {
		var (
			ta      model.TradeArea
			polygon sql.NullString
		)
		if err := rows.Scan(&ta.PlaceID, &ta.Level, &polygon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan trade area")
		}
		ta.Polygon = geometry.ParsePolygon([]byte(polygon.String))
		areas = append(areas, ta)
	}
	return areas, eris.Wrap(rows.Err(), "sqlite: iterate trade areas")
}

func (s *SQLiteStore) HomeZipcodes(ctx context.Context, placeID string) (*model.HomeZipcodes, error) {
	var (
		hz        model.HomeZipcodes
		locations string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT place_id, locations FROM home_zipcodes WHERE place_id = ?`, placeID).
		Scan(&hz.PlaceID, &locations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: home zipcodes for %s", placeID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: home zipcodes for %s", placeID)
	}
	if err := hz.Locations.UnmarshalJSON([]byte(locations)); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode locations")
	}
	return &hz, nil
}

func (s *SQLiteStore) ZipcodePolygons(ctx context.Context, ids []string) ([]model.Zipcode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id, polygon FROM zipcodes WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: zipcode polygons")
	}
	defer rows.Close() //nolint:errcheck

	var zips []model.Zipcode
	for rows.Next() {
		var (
			z       model.Zipcode
			polygon sql.NullString
		)
		if err := rows.Scan(&z.ID, &polygon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan zipcode")
		}
		z.Polygon = geometry.ParsePolygon([]byte(polygon.String))
		zips = append(zips, z)
	}
	return zips, eris.Wrap(rows.Err(), "sqlite: iterate zipcodes")
}

func (s *SQLiteStore) ImportPlaces(ctx context.Context, places []model.Place) (int64, error) {
	query := `INSERT OR REPLACE INTO places (` + strings.Join(placeColumns, ", ") +
		`) VALUES (` + placeholders(len(placeColumns)) + `)`
	return s.inTx(ctx, "places", func(tx *sql.Tx) (int64, error) {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return 0, err
		}
		defer stmt.Close() //nolint:errcheck
		for _, p := range places {
			if _, err := stmt.ExecContext(ctx, placeRow(p)...); err != nil {
				return 0, eris.Wrapf(err, "place %s", p.ID)
			}
		}
		return int64(len(places)), nil
	})
}

// ImportTradeAreas replaces every trade area of the places present in areas.
func (s *SQLiteStore) ImportTradeAreas(ctx context.Context, areas []model.TradeArea) (int64, error) {
	return s.inTx(ctx, "trade areas", func(tx *sql.Tx) (int64, error) {
		for _, pid := range distinctPlaceIDs(areas) {
			if _, err := tx.ExecContext(ctx, `DELETE FROM trade_areas WHERE pid = ?`, pid); err != nil {
				return 0, eris.Wrapf(err, "clear %s", pid)
			}
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO trade_areas (pid, trade_area, polygon) VALUES (?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer stmt.Close() //nolint:errcheck
		for _, a := range areas {
			polygon, err := encodePolygon(a.Polygon)
			if err != nil {
				return 0, err
			}
			if _, err := stmt.ExecContext(ctx, a.PlaceID, a.Level, polygon); err != nil {
				return 0, eris.Wrapf(err, "trade area %s/%d", a.PlaceID, a.Level)
			}
		}
		return int64(len(areas)), nil
	})
}

func (s *SQLiteStore) ImportHomeZipcodes(ctx context.Context, records []model.HomeZipcodes) (int64, error) {
	return s.inTx(ctx, "home zipcodes", func(tx *sql.Tx) (int64, error) {
		for _, r := range records {
			locations, err := encodeLocations(r.Locations)
			if err != nil {
				return 0, err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO home_zipcodes (place_id, locations) VALUES (?, ?)`,
				r.PlaceID, locations); err != nil {
				return 0, eris.Wrapf(err, "home zipcodes %s", r.PlaceID)
			}
		}
		return int64(len(records)), nil
	})
}

func (s *SQLiteStore) ImportZipcodes(ctx context.Context, zipcodes []model.Zipcode) (int64, error) {
	return s.inTx(ctx, "zipcodes", func(tx *sql.Tx) (int64, error) {
		for _, z := range zipcodes {
			polygon, err := encodePolygon(z.Polygon)
			if err != nil {
				return 0, err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO zipcodes (id, polygon) VALUES (?, ?)`, z.ID, polygon); err != nil {
				return 0, eris.Wrapf(err, "zipcode %s", z.ID)
			}
		}
		return int64(len(zipcodes)), nil
	})
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func (s *SQLiteStore) inTx(ctx context.Context, what string, fn func(tx *sql.Tx) (int64, error)) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: import %s: begin tx", what)
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := fn(tx)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: import %s", what)
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: import %s: commit tx", what)
	}
	return n, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
