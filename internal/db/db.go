package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"route-simulator/internal/route"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// FetchWaypoints loads the recorded points of a route ordered by sequence.
// A NULL recorded_at leaves the timestamp missing so normalization can
// synthesize one.
func FetchWaypoints(ctx context.Context, db *sql.DB, routeID string) ([]route.RawWaypoint, error) {
	routeID = strings.TrimSpace(routeID)
	if routeID == "" {
		return nil, fmt.Errorf("route id is required")
	}
	q := `SELECT lat, lng, recorded_at
          FROM route_points WHERE route_id = $1 ORDER BY seq`
	rows, err := db.QueryContext(ctx, q, routeID)
	if err != nil {
		return nil, fmt.Errorf("query route_points: %w", err)
	}
	defer rows.Close()

	var pts []route.RawWaypoint
	for rows.Next() {
		var (
			p  route.RawWaypoint
			ts sql.NullTime
		)
		if err := rows.Scan(&p.Lat, &p.Lng, &ts); err != nil {
			return nil, err
		}
		if ts.Valid {
			p.Timestamp = ts.Time
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

// ResolveLatestRoute returns the route_id of the most recent recording for a
// vehicle.
func ResolveLatestRoute(ctx context.Context, db *sql.DB, vehicleID string) (string, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return "", fmt.Errorf("vehicle id is required")
	}
	q := `
SELECT route_id
FROM recorded_routes
WHERE vehicle_id = $1
ORDER BY recorded_at DESC
LIMIT 1`
	var routeID sql.NullString
	if err := db.QueryRowContext(ctx, q, vehicleID).Scan(&routeID); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("no recorded route for vehicle %q", vehicleID)
		}
		return "", err
	}
	if !routeID.Valid || routeID.String == "" {
		return "", fmt.Errorf("empty route_id for vehicle %q", vehicleID)
	}
	return routeID.String, nil
}

// LoadRoute fetches and normalizes a stored route.
func LoadRoute(ctx context.Context, db *sql.DB, routeID string, now time.Time) (*route.Route, error) {
	raws, err := FetchWaypoints(ctx, db, routeID)
	if err != nil {
		return nil, err
	}
	r, err := route.Normalize(raws, now)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", routeID, err)
	}
	return r, nil
}
