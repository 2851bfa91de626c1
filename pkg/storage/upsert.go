package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// UpsertOptions controls conflict handling of UpsertShowAll
type UpsertOptions struct {
	// Preserve lists columns kept from the existing row when the key already
	// exists. A column is preserved in every table that has it.
	Preserve []string
}

// tableSpec describes one upserted table. columns[0] is the conflict key.
type tableSpec struct {
	name    string
	columns []string
	casts   map[string]string
}

var (
	basicTable = tableSpec{
		name:    "show_created_events",
		columns: []string{"show_id", "tx_hash", "block_number", "organizer", "log_index", "created_at"},
	}

	detailTable = tableSpec{
		name: "show_created_events_detail",
		columns: []string{
			"show_id", "start_time", "end_time", "total_tickets", "ticket_price", "decimal",
			"ticket_sold", "organizer", "location", "name", "description", "metadata_uri",
			"status", "created_at",
		},
		casts: map[string]string{"status": "::text::show_status"},
	}

	snapshotTable = tableSpec{
		name: "shows",
		columns: []string{
			"id", "name", "description", "location", "event_time", "ticket_price",
			"max_tickets", "sold_tickets", "is_active", "organizer", "created_at",
		},
	}
)

func (t tableSpec) key() string {
	return t.columns[0]
}

func (t tableSpec) updatable(column string) bool {
	for _, c := range t.columns[1:] {
		if c == column {
			return true
		}
	}
	return false
}

// upsertSQL builds the INSERT ... ON CONFLICT statement. Preserved columns are
// left out of the SET list; when nothing is left to set the conflict is ignored.
func (t tableSpec) upsertSQL(preserve map[string]bool) string {
	placeholders := make([]string, len(t.columns))
	for i, c := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d%s", i+1, t.casts[c])
	}

	var sets []string
	for _, c := range t.columns[1:] {
		if preserve[c] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		t.name, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "), t.key())
	if len(sets) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		b.WriteString("DO UPDATE SET ")
		b.WriteString(strings.Join(sets, ", "))
	}
	return b.String()
}

func basicArgs(r ShowBasic) []any {
	return []any{r.ShowID, r.TxHash, r.BlockNumber, r.Organizer, r.LogIndex, r.CreatedAt}
}

func detailArgs(r ShowDetail) []any {
	return []any{
		r.ShowID, r.StartTime, r.EndTime, r.TotalTickets, r.TicketPrice, r.Decimal,
		r.TicketSold, r.Organizer, r.Location, r.Name, r.Description, r.MetadataURI,
		string(r.Status), r.CreatedAt,
	}
}

func snapshotArgs(r ShowSnapshot) []any {
	return []any{
		r.ID, r.Name, r.Description, r.Location, r.EventTime, r.TicketPrice,
		r.MaxTickets, r.SoldTickets, r.IsActive, r.Organizer, r.CreatedAt,
	}
}

// preserveSet validates columns against the updatable columns of the three tables
func preserveSet(columns []string) (map[string]bool, error) {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		if !basicTable.updatable(c) && !detailTable.updatable(c) && !snapshotTable.updatable(c) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPreserve, c)
		}
		set[c] = true
	}
	return set, nil
}

// UpsertShowAll writes the basic, detail and snapshot rows of one show in a
// single transaction. Either all three rows are written or none is.
func (s *Store) UpsertShowAll(ctx context.Context, recs ShowRecords, opts UpsertOptions) error {
	if err := recs.Validate(); err != nil {
		return err
	}
	preserve, err := preserveSet(opts.Preserve)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrUpsertFailed, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := upsertAll(ctx, tx, recs, preserve); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrUpsertFailed, err)
	}

	s.logger.Debug("show upserted", zap.String("show_id", recs.Basic.ShowID.String()))
	return nil
}

func upsertAll(ctx context.Context, tx pgx.Tx, recs ShowRecords, preserve map[string]bool) error {
	steps := []struct {
		table tableSpec
		args  []any
	}{
		{basicTable, basicArgs(recs.Basic)},
		{detailTable, detailArgs(recs.Detail)},
		{snapshotTable, snapshotArgs(recs.Snapshot)},
	}

	for _, step := range steps {
		if _, err := tx.Exec(ctx, step.table.upsertSQL(preserve), step.args...); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrUpsertFailed, step.table.name, err)
		}
	}
	return nil
}
