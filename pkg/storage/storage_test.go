package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx records statements and fails the Nth Exec when failAt > 0
type fakeTx struct {
	pgx.Tx
	execs      []string
	args       [][]any
	failAt     int
	failErr    error
	tag        pgconn.CommandTag
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	if f.failAt > 0 && len(f.execs) == f.failAt {
		return pgconn.CommandTag{}, f.failErr
	}
	return f.tag, nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

type fakeDB struct {
	DB
	tx       *fakeTx
	beginErr error
	begins   int
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	f.begins++
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func testState(id uint64) ShowState {
	return ShowState{
		ShowID:       u256.FromUint64(id),
		Name:         "Demo Show One",
		Description:  "First demo show",
		Location:     "City Hall",
		StartTime:    u256.FromUint64(1735689600),
		EndTime:      u256.FromUint64(1735696800),
		TotalTickets: u256.FromUint64(1000),
		TicketPrice:  u256.MustParse("1000000000000000000"),
		TicketsSold:  u256.FromUint64(10),
		MetadataURI:  "ipfs://demo1",
		Status:       ShowStatusActive,
		Organizer:    "0x5FbDB2315678afecb367f032d93F642f64180aa3",
	}
}

// ---- Models ----

func TestStatusFromCode(t *testing.T) {
	tests := []struct {
		code uint8
		want ShowStatus
	}{
		{0, ShowStatusUpcoming},
		{1, ShowStatusActive},
		{2, ShowStatusEnded},
		{3, ShowStatusCancelled},
		{4, ShowStatusUpcoming},
		{255, ShowStatusUpcoming},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFromCode(tt.code), "code %d", tt.code)
	}
}

func TestParseShowStatus(t *testing.T) {
	got, err := ParseShowStatus(" active ")
	require.NoError(t, err)
	assert.Equal(t, ShowStatusActive, got)

	_, err = ParseShowStatus("postponed")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBuildRecords(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txHash := "0xabc"
	block := u256.FromUint64(42)
	logIndex := u256.FromUint64(3)

	recs := BuildRecords(testState(7), EventMeta{TxHash: &txHash, BlockNumber: &block, LogIndex: &logIndex}, now)
	require.NoError(t, recs.Validate())

	assert.Equal(t, "7", recs.Basic.ShowID.String())
	assert.Equal(t, &txHash, recs.Basic.TxHash)
	assert.True(t, recs.Basic.BlockNumber.Eq(block))
	assert.Equal(t, now, recs.Basic.CreatedAt)

	assert.Equal(t, int64(18), recs.Detail.Decimal)
	require.NotNil(t, recs.Detail.MetadataURI)
	assert.Equal(t, "ipfs://demo1", *recs.Detail.MetadataURI)
	assert.Equal(t, ShowStatusActive, recs.Detail.Status)
	assert.True(t, recs.Detail.TicketSold.Eq(u256.FromUint64(10)))

	assert.True(t, recs.Snapshot.IsActive)
	assert.True(t, recs.Snapshot.EventTime.Eq(recs.Detail.StartTime))
	assert.True(t, recs.Snapshot.MaxTickets.Eq(recs.Detail.TotalTickets))
	assert.Equal(t, recs.Basic.Organizer, recs.Snapshot.Organizer)
}

func TestBuildRecords_Optionals(t *testing.T) {
	state := testState(1)
	state.MetadataURI = ""
	state.Status = ShowStatusEnded

	recs := BuildRecords(state, EventMeta{}, time.Now())
	assert.Nil(t, recs.Detail.MetadataURI)
	assert.Nil(t, recs.Basic.TxHash)
	assert.Nil(t, recs.Basic.BlockNumber)
	assert.Nil(t, recs.Basic.LogIndex)
	assert.False(t, recs.Snapshot.IsActive)
}

func TestShowRecords_Validate(t *testing.T) {
	recs := BuildRecords(testState(1), EventMeta{}, time.Now())
	recs.Snapshot.ID = u256.FromUint64(2)
	assert.ErrorIs(t, recs.Validate(), ErrMismatchedRecords)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{"defaults", 0, 0, 20, 0},
		{"negative limit", -5, 10, 20, 10},
		{"within range", 50, 5, 50, 5},
		{"clamped", 5000, 0, 1000, 0},
		{"negative offset", 10, -1, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := NormalizePage(tt.limit, tt.offset)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

// ---- Statement builder ----

func TestUpsertSQL(t *testing.T) {
	sql := basicTable.upsertSQL(nil)
	assert.True(t, strings.HasPrefix(sql, "INSERT INTO show_created_events (show_id, tx_hash,"))
	assert.Contains(t, sql, "ON CONFLICT (show_id) DO UPDATE SET tx_hash = EXCLUDED.tx_hash")
	assert.Contains(t, sql, "created_at = EXCLUDED.created_at")
	assert.NotContains(t, sql, "show_id = EXCLUDED.show_id")

	sql = detailTable.upsertSQL(map[string]bool{"created_at": true})
	assert.Contains(t, sql, "$13::text::show_status")
	assert.Contains(t, sql, "status = EXCLUDED.status")
	assert.NotContains(t, sql, "created_at = EXCLUDED.created_at")

	sql = snapshotTable.upsertSQL(nil)
	assert.Contains(t, sql, "ON CONFLICT (id)")
	assert.Contains(t, sql, "$11")
}

func TestUpsertSQL_AllPreserved(t *testing.T) {
	preserve := map[string]bool{}
	for _, c := range basicTable.columns[1:] {
		preserve[c] = true
	}
	assert.True(t, strings.HasSuffix(basicTable.upsertSQL(preserve), "DO NOTHING"))
}

func TestPutPreserve_KeepsEventLocation(t *testing.T) {
	preserve, err := preserveSet(putPreserve.Preserve)
	require.NoError(t, err)

	sql := basicTable.upsertSQL(preserve)
	for _, c := range []string{"tx_hash", "block_number", "log_index", "created_at"} {
		assert.NotContains(t, sql, c+" = EXCLUDED."+c)
	}
	assert.Contains(t, sql, "organizer = EXCLUDED.organizer")
	assert.Contains(t, detailTable.upsertSQL(preserve), "name = EXCLUDED.name")
}

func TestPreserveSet(t *testing.T) {
	set, err := preserveSet([]string{"created_at", "status"})
	require.NoError(t, err)
	assert.True(t, set["created_at"])
	assert.True(t, set["status"])

	for _, bad := range []string{"bogus", "show_id", "id", ""} {
		_, err := preserveSet([]string{bad})
		assert.ErrorIs(t, err, ErrInvalidPreserve, bad)
	}
}

func TestArgsMatchColumns(t *testing.T) {
	recs := BuildRecords(testState(1), EventMeta{}, time.Now())
	assert.Len(t, basicArgs(recs.Basic), len(basicTable.columns))
	assert.Len(t, detailArgs(recs.Detail), len(detailTable.columns))
	assert.Len(t, snapshotArgs(recs.Snapshot), len(snapshotTable.columns))
}

// ---- UpsertShowAll ----

func TestUpsertShowAll_Commits(t *testing.T) {
	tx := &fakeTx{}
	db := &fakeDB{tx: tx}
	store := NewStore(db, nil)

	recs := BuildRecords(testState(5), EventMeta{}, time.Now())
	require.NoError(t, store.UpsertShowAll(context.Background(), recs, UpsertOptions{Preserve: []string{"created_at"}}))

	require.Len(t, tx.execs, 3)
	assert.Contains(t, tx.execs[0], "INSERT INTO show_created_events ")
	assert.Contains(t, tx.execs[1], "INSERT INTO show_created_events_detail ")
	assert.Contains(t, tx.execs[2], "INSERT INTO shows ")
	for _, sql := range tx.execs {
		assert.NotContains(t, sql, "created_at = EXCLUDED.created_at")
	}
	assert.Equal(t, "ACTIVE", tx.args[1][12])
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestUpsertShowAll_RollsBackOnFailure(t *testing.T) {
	cause := errors.New("connection reset")

	for failAt := 1; failAt <= 3; failAt++ {
		tx := &fakeTx{failAt: failAt, failErr: cause}
		store := NewStore(&fakeDB{tx: tx}, nil)

		err := store.UpsertShowAll(context.Background(), BuildRecords(testState(5), EventMeta{}, time.Now()), UpsertOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUpsertFailed)
		assert.ErrorIs(t, err, cause)
		assert.Len(t, tx.execs, failAt, "no statement runs after the failing one")
		assert.False(t, tx.committed)
		assert.True(t, tx.rolledBack)
	}
}

func TestUpsertShowAll_FailureNamesTable(t *testing.T) {
	tx := &fakeTx{failAt: 3, failErr: errors.New("boom")}
	store := NewStore(&fakeDB{tx: tx}, nil)

	err := store.UpsertShowAll(context.Background(), BuildRecords(testState(5), EventMeta{}, time.Now()), UpsertOptions{})
	assert.Contains(t, err.Error(), "shows")
}

func TestUpsertShowAll_RejectsBeforeWriting(t *testing.T) {
	recs := BuildRecords(testState(5), EventMeta{}, time.Now())

	t.Run("invalid preserve", func(t *testing.T) {
		db := &fakeDB{tx: &fakeTx{}}
		err := NewStore(db, nil).UpsertShowAll(context.Background(), recs, UpsertOptions{Preserve: []string{"nope"}})
		assert.ErrorIs(t, err, ErrInvalidPreserve)
		assert.Zero(t, db.begins)
	})

	t.Run("mismatched ids", func(t *testing.T) {
		bad := recs
		bad.Detail.ShowID = u256.FromUint64(6)
		db := &fakeDB{tx: &fakeTx{}}
		err := NewStore(db, nil).UpsertShowAll(context.Background(), bad, UpsertOptions{})
		assert.ErrorIs(t, err, ErrMismatchedRecords)
		assert.Zero(t, db.begins)
	})

	t.Run("begin failure", func(t *testing.T) {
		db := &fakeDB{beginErr: errors.New("pool closed")}
		err := NewStore(db, nil).UpsertShowAll(context.Background(), recs, UpsertOptions{})
		assert.ErrorIs(t, err, ErrUpsertFailed)
	})
}

// ---- DeleteShow ----

func TestDeleteShow(t *testing.T) {
	t.Run("deletes all three rows", func(t *testing.T) {
		tx := &fakeTx{tag: pgconn.NewCommandTag("DELETE 1")}
		require.NoError(t, NewStore(&fakeDB{tx: tx}, nil).DeleteShow(context.Background(), u256.FromUint64(1)))
		require.Len(t, tx.execs, 3)
		assert.Equal(t, "DELETE FROM show_created_events WHERE show_id = $1", tx.execs[0])
		assert.Equal(t, "DELETE FROM shows WHERE id = $1", tx.execs[2])
		assert.True(t, tx.committed)
	})

	t.Run("missing show", func(t *testing.T) {
		tx := &fakeTx{tag: pgconn.NewCommandTag("DELETE 0")}
		err := NewStore(&fakeDB{tx: tx}, nil).DeleteShow(context.Background(), u256.FromUint64(1))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, tx.committed)
		assert.True(t, tx.rolledBack)
	})

	t.Run("failure rolls back", func(t *testing.T) {
		tx := &fakeTx{failAt: 2, failErr: errors.New("boom")}
		err := NewStore(&fakeDB{tx: tx}, nil).DeleteShow(context.Background(), u256.FromUint64(1))
		assert.Error(t, err)
		assert.False(t, tx.committed)
		assert.True(t, tx.rolledBack)
	})
}
