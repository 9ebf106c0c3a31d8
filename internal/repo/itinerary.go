// Package repo contains all database access logic for the itinerary API.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/itinerary-planner/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, pgx.Tx
// and pgxmock. Integration tests pass a transaction that is rolled back after
// each test; unit tests pass a pgxmock pool.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ItineraryRepo defines the persistence operations for itinerary documents.
// The service layer depends on this interface, not on the Postgres
// implementation.
type ItineraryRepo interface {
	// Get returns the document of profileID.
	// Returns domain.ErrNotFound if the profile has never saved.
	Get(ctx context.Context, profileID string) (domain.Itinerary, error)

	// Upsert replaces the document of profileID with trips and returns the
	// stored record. The last writer wins.
	Upsert(ctx context.Context, profileID string, trips []domain.Trip) (domain.Itinerary, error)

	// Delete removes the document of profileID.
	// Returns domain.ErrNotFound if there was none.
	Delete(ctx context.Context, profileID string) error

	// ListProfiles returns every profile id with a stored document, ordered
	// by most recent update first.
	ListProfiles(ctx context.Context) ([]string, error)
}

type pgItineraryRepo struct {
	db db
}

// NewItineraryRepo constructs an ItineraryRepo backed by db.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx or a pgxmock pool.
func NewItineraryRepo(db db) ItineraryRepo {
	return &pgItineraryRepo{db: db}
}

func (r *pgItineraryRepo) Get(ctx context.Context, profileID string) (domain.Itinerary, error) {
	const q = `
		SELECT profile_id, data, updated_at
		FROM itineraries
		WHERE profile_id = $1`

	it, err := scanItinerary(r.db.QueryRow(ctx, q, profileID))
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.Get: %w", err)
	}
	return it, nil
}

func (r *pgItineraryRepo) Upsert(ctx context.Context, profileID string, trips []domain.Trip) (domain.Itinerary, error) {
	const q = `
		INSERT INTO itineraries (profile_id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (profile_id) DO UPDATE
		SET data       = EXCLUDED.data,
		    updated_at = now()
		RETURNING profile_id, data, updated_at`

	if trips == nil {
		trips = []domain.Trip{}
	}
	data, err := json.Marshal(trips)
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.Upsert: encode: %w", err)
	}

	it, err := scanItinerary(r.db.QueryRow(ctx, q, profileID, data))
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.Upsert: %w", err)
	}
	return it, nil
}

func (r *pgItineraryRepo) Delete(ctx context.Context, profileID string) error {
	const q = `DELETE FROM itineraries WHERE profile_id = $1`

	tag, err := r.db.Exec(ctx, q, profileID)
	if err != nil {
		return fmt.Errorf("repo.ItineraryRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ItineraryRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgItineraryRepo) ListProfiles(ctx context.Context) ([]string, error) {
	const q = `
		SELECT profile_id
		FROM itineraries
		ORDER BY updated_at DESC, profile_id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.ItineraryRepo.ListProfiles: %w", err)
	}
	defer rows.Close()

	profiles := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repo.ItineraryRepo.ListProfiles: scan: %w", err)
		}
		profiles = append(profiles, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ItineraryRepo.ListProfiles: rows: %w", err)
	}
	return profiles, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanItinerary maps one row into a domain.Itinerary, decoding the JSONB
// document. A stored value that is not an array decodes to no trips.
func scanItinerary(s scanner) (domain.Itinerary, error) {
	var (
		it        domain.Itinerary
		data      []byte
		updatedAt time.Time
	)
	if err := s.Scan(&it.ProfileID, &data, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Itinerary{}, domain.ErrNotFound
		}
		return domain.Itinerary{}, err
	}
	it.UpdatedAt = updatedAt
	it.Trips = []domain.Trip{}

	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '[' {
		return it, nil
	}
	if err := json.Unmarshal(data, &it.Trips); err != nil {
		return domain.Itinerary{}, fmt.Errorf("decode data: %w", err)
	}
	return it, nil
}
