package pnl

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap"
)

func TestPostgresStore_InsertFill(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := &PostgresStore{db: db, logger: logger}

	f := types.Fill{
		FillID:      "fill-1",
		Ticker:      "TICK-A",
		Side:        types.SideYes,
		Action:      "buy",
		Price:       50,
		Count:       5,
		Fee:         1,
		IsTaker:     false,
		CreatedTime: time.Now(),
		MatchID:     "match-1",
	}

	mock.ExpectExec("INSERT INTO fills").
		WithArgs(f.FillID, f.Ticker, string(f.Side), f.Action, f.Price, f.Count, f.Fee, f.IsTaker, sqlmock.AnyArg(), f.MatchID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := store.InsertFill(context.Background(), f)
	if err != nil {
		t.Fatalf("InsertFill: %v", err)
	}
	if !inserted {
		t.Error("expected inserted=true")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStore_InsertFill_Duplicate(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := &PostgresStore{db: db, logger: logger}
	f := types.Fill{FillID: "fill-1", Ticker: "TICK-A", Side: types.SideYes, Action: "buy", CreatedTime: time.Now()}

	mock.ExpectExec("INSERT INTO fills").
		WithArgs(f.FillID, f.Ticker, string(f.Side), f.Action, f.Price, f.Count, f.Fee, f.IsTaker, sqlmock.AnyArg(), f.MatchID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := store.InsertFill(context.Background(), f)
	if err != nil {
		t.Fatalf("InsertFill: %v", err)
	}
	if inserted {
		t.Error("expected inserted=false for ON CONFLICT DO NOTHING no-op")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStore_UpsertMatch_Error(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := &PostgresStore{db: db, logger: logger}

	mock.ExpectExec("INSERT INTO pnl_matches").
		WithArgs("m1", "TICK-A", "TICK-B", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sqlmock.ErrCancelled)

	err = store.UpsertMatch(context.Background(), types.PnLMatch{ID: "m1", TickerA: "TICK-A", TickerB: "TICK-B"})
	if err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStore_DeleteHedge(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := &PostgresStore{db: db, logger: logger}

	mock.ExpectExec("DELETE FROM hedges").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.DeleteHedge(context.Background(), 7)
	if err != nil {
		t.Fatalf("DeleteHedge: %v", err)
	}
	if !ok {
		t.Error("expected ok=true")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStore_DeleteHedge_NotFound(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := &PostgresStore{db: db, logger: logger}

	mock.ExpectExec("DELETE FROM hedges").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.DeleteHedge(context.Background(), 99)
	if err != nil {
		t.Fatalf("DeleteHedge: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing hedge")
	}
}

func TestPostgresStore_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	store := &PostgresStore{db: db, logger: logger}
	mock.ExpectClose()

	if err := store.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_Interface(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	var _ Store = NewMemoryStore(logger)

	db, _, _ := sqlmock.New()
	defer db.Close()

	var _ Store = &PostgresStore{db: db, logger: logger}
}
