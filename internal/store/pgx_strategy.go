package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"geodash/internal/domain"
	"geodash/internal/jsonfield"
)

// pgxStrategy is the raw fallback path. Each operation dials its own
// connection and releases it on exit; nothing is shared with the primary
// pool, so whatever broke that pool cannot leak in here.
type pgxStrategy struct {
	dsn string
}

func (s *pgxStrategy) withConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()
	return fn(conn)
}

func (s *pgxStrategy) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx,
			`SELECT id, email, password_hash, created_at, updated_at FROM users WHERE email = $1`,
			email)
		if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *pgxStrategy) UpsertUser(ctx context.Context, email, passwordHash string) (*domain.User, bool, error) {
	var u domain.User
	var created bool
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		now := time.Now().UTC()
		row := conn.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $3)
			 ON CONFLICT (email) DO UPDATE
			   SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
			 RETURNING id, email, password_hash, created_at, updated_at, (xmax = 0)`,
			email, passwordHash, now)
		return row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &created)
	})
	if err != nil {
		return nil, false, err
	}
	return &u, created, nil
}

func (s *pgxStrategy) CreateSearchHistory(ctx context.Context, rec *domain.SearchHistory) error {
	return s.withConn(ctx, func(conn *pgx.Conn) error {
		var geoInfo []byte
		if len(rec.GeoInfo) > 0 {
			geoInfo = []byte(rec.GeoInfo)
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		row := conn.QueryRow(ctx,
			`INSERT INTO search_histories
			   (user_id, ip_address, city, region, country, isp, asn, timezone, latitude, longitude, geo_info, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 RETURNING id`,
			rec.UserID, rec.IPAddress, rec.City, rec.Region, rec.Country, rec.ISP, rec.ASN,
			rec.Timezone, rec.Latitude, rec.Longitude, geoInfo, rec.CreatedAt)
		return row.Scan(&rec.ID)
	})
}

func (s *pgxStrategy) ListSearchHistoryByUser(ctx context.Context, userID int64) ([]domain.SearchHistory, error) {
	var recs []domain.SearchHistory
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT id, user_id, ip_address, city, region, country, isp, asn, timezone,
			        latitude, longitude, geo_info, created_at
			 FROM search_histories
			 WHERE user_id = $1
			 ORDER BY created_at DESC`,
			userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec domain.SearchHistory
			var geoInfo []byte
			if err := rows.Scan(&rec.ID, &rec.UserID, &rec.IPAddress, &rec.City, &rec.Region,
				&rec.Country, &rec.ISP, &rec.ASN, &rec.Timezone, &rec.Latitude, &rec.Longitude,
				&geoInfo, &rec.CreatedAt); err != nil {
				return err
			}
			rec.GeoInfo = jsonfield.JSON(geoInfo)
			recs = append(recs, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *pgxStrategy) DeleteSearchHistoryByIDs(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx,
			`DELETE FROM search_histories WHERE id = ANY($1) AND user_id = $2`,
			ids, userID)
		return err
	})
}
