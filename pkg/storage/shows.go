package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const snapshotColumns = `id, name, description, location, event_time, ticket_price,
	max_tickets, sold_tickets, is_active, organizer, created_at`

// ShowPatch holds the operator-editable fields of a show. Nil fields are left unchanged;
// an empty MetadataURI clears it.
type ShowPatch struct {
	Name        *string
	Description *string
	Location    *string
	MetadataURI *string
	Status      *ShowStatus
}

// IsEmpty reports whether the patch changes nothing
func (p ShowPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Location == nil &&
		p.MetadataURI == nil && p.Status == nil
}

// NormalizePage clamps list paging parameters
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = constants.DefaultPageLimit
	}
	if limit > constants.MaxPageLimit {
		limit = constants.MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanSnapshot(row pgx.Row) (*ShowSnapshot, error) {
	var s ShowSnapshot
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Location, &s.EventTime, &s.TicketPrice,
		&s.MaxTickets, &s.SoldTickets, &s.IsActive, &s.Organizer, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetShowByID returns the snapshot row of a show
func (s *Store) GetShowByID(ctx context.Context, id u256.Uint256) (*ShowSnapshot, error) {
	row := s.db.QueryRow(ctx, "SELECT "+snapshotColumns+" FROM shows WHERE id = $1", id)
	show, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get show %s: %w", id, err)
	}
	return show, nil
}

// ListShows returns snapshots ordered by id
func (s *Store) ListShows(ctx context.Context, limit, offset int) ([]ShowSnapshot, error) {
	limit, offset = NormalizePage(limit, offset)

	rows, err := s.db.Query(ctx,
		"SELECT "+snapshotColumns+" FROM shows ORDER BY id ASC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	defer rows.Close()

	shows := make([]ShowSnapshot, 0, limit)
	for rows.Next() {
		show, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan show: %w", err)
		}
		shows = append(shows, *show)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	return shows, nil
}

// putPreserve keeps what only ingestion knows: the first-seen time and the
// location of the ShowCreated log
var putPreserve = UpsertOptions{Preserve: []string{"created_at", "tx_hash", "block_number", "log_index"}}

// PutShow writes a full show state outside ingestion, creating or replacing
// all three rows. The created_at and event location of an existing show are kept.
func (s *Store) PutShow(ctx context.Context, state ShowState) (*ShowSnapshot, error) {
	recs := BuildRecords(state, EventMeta{}, time.Now().UTC())
	if err := s.UpsertShowAll(ctx, recs, putPreserve); err != nil {
		return nil, err
	}
	return s.GetShowByID(ctx, state.ShowID)
}

// UpdateShow applies a patch to the detail and snapshot rows in one transaction
func (s *Store) UpdateShow(ctx context.Context, id u256.Uint256, patch ShowPatch) (*ShowSnapshot, error) {
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin update: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `UPDATE show_created_events_detail SET
		name = COALESCE($2, name),
		description = COALESCE($3, description),
		location = COALESCE($4, location),
		metadata_uri = CASE WHEN $5::text IS NULL THEN metadata_uri ELSE NULLIF($5::text, '') END,
		status = COALESCE($6::text::show_status, status)
		WHERE show_id = $1`,
		id, patch.Name, patch.Description, patch.Location, patch.MetadataURI, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update show detail %s: %w", id, err)
	}

	row := tx.QueryRow(ctx, `UPDATE shows SET
		name = COALESCE($2, name),
		description = COALESCE($3, description),
		location = COALESCE($4, location),
		is_active = COALESCE($5::text = 'ACTIVE', is_active)
		WHERE id = $1
		RETURNING `+snapshotColumns,
		id, patch.Name, patch.Description, patch.Location, status)
	show, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update show %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	s.logger.Info("show updated", zap.String("show_id", id.String()))
	return show, nil
}

// DeleteShow removes all three rows of a show in one transaction
func (s *Store) DeleteShow(ctx context.Context, id u256.Uint256) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var affected int64
	for _, table := range []tableSpec{basicTable, detailTable, snapshotTable} {
		tag, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table.name, table.key()), id)
		if err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table.name, err)
		}
		affected += tag.RowsAffected()
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	s.logger.Info("show deleted", zap.String("show_id", id.String()))
	return nil
}
