// Package store persists vehicle snapshots in Postgres. It is a mirror
// of the in-memory registry, not the source of truth: the registry
// writes through after each commit and reads it back once at boot.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver
	"github.com/voltride/fleet-api/internal/fleet"
)

// Store wraps the vehicles table.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveVehicle upserts one vehicle snapshot keyed by IMEI.
func (s *Store) SaveVehicle(ctx context.Context, v fleet.Vehicle) error {
	const query = `
		INSERT INTO vehicles (id, imei, lat, lng, battery, speed, odometer, status, current_user_id, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (imei) DO UPDATE SET
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			battery = EXCLUDED.battery,
			speed = EXCLUDED.speed,
			odometer = EXCLUDED.odometer,
			status = EXCLUDED.status,
			current_user_id = EXCLUDED.current_user_id,
			last_seen = EXCLUDED.last_seen`

	_, err := s.db.ExecContext(ctx, query,
		v.ID, v.IMEI, v.Lat, v.Lng, v.Battery, v.Speed, v.Odometer, string(v.Status), nullString(v.CurrentUserID), v.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to save vehicle %s: %w", v.IMEI, err)
	}
	return nil
}

// ListVehicles returns every stored snapshot, for registry warm-up.
func (s *Store) ListVehicles(ctx context.Context) ([]fleet.Vehicle, error) {
	const query = `
		SELECT id, imei, lat, lng, battery, speed, odometer, status, current_user_id, last_seen
		FROM vehicles
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var vehicles []fleet.Vehicle
	for rows.Next() {
		var v fleet.Vehicle
		var status string
		var userID sql.NullString
		if err := rows.Scan(&v.ID, &v.IMEI, &v.Lat, &v.Lng, &v.Battery, &v.Speed, &v.Odometer, &status, &userID, &v.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		v.Status = fleet.Status(status)
		v.CurrentUserID = userID.String
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vehicles: %w", err)
	}
	return vehicles, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
