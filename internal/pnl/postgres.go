package pnl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap"
)

// PostgresStore implements Store using PostgreSQL, following the
// connection and query style of internal/storage's PostgresStorage.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore opens a connection and pings it before returning.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("pnl-postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{db: db, logger: cfg.Logger}, nil
}

func (p *PostgresStore) UpsertMatch(ctx context.Context, m types.PnLMatch) error {
	query := `
		INSERT INTO pnl_matches (id, ticker_a, ticker_b, theo_a, theo_b, event_time, settled_at, result_a, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			ticker_a = EXCLUDED.ticker_a,
			ticker_b = EXCLUDED.ticker_b,
			theo_a = COALESCE(EXCLUDED.theo_a, pnl_matches.theo_a),
			theo_b = COALESCE(EXCLUDED.theo_b, pnl_matches.theo_b),
			event_time = COALESCE(EXCLUDED.event_time, pnl_matches.event_time),
			settled_at = COALESCE(EXCLUDED.settled_at, pnl_matches.settled_at),
			result_a = COALESCE(EXCLUDED.result_a, pnl_matches.result_a),
			category = COALESCE(EXCLUDED.category, pnl_matches.category)
	`
	_, err := p.db.ExecContext(ctx, query,
		m.ID, m.TickerA, m.TickerB, m.TheoA, m.TheoB, m.EventTime, m.SettledAt, m.ResultA, m.Category)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetMatch(ctx context.Context, matchID string) (*types.PnLMatch, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, ticker_a, ticker_b, theo_a, theo_b, event_time, settled_at, result_a, category
		 FROM pnl_matches WHERE id = $1`, matchID)

	var m types.PnLMatch
	err := row.Scan(&m.ID, &m.TickerA, &m.TickerB, &m.TheoA, &m.TheoB, &m.EventTime, &m.SettledAt, &m.ResultA, &m.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", matchID, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("scan match: %w", err)
	}
	return &m, nil
}

func (p *PostgresStore) GetAllMatches(ctx context.Context) ([]types.PnLMatch, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, ticker_a, ticker_b, theo_a, theo_b, event_time, settled_at, result_a, category FROM pnl_matches`)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []types.PnLMatch
	for rows.Next() {
		var m types.PnLMatch
		if err := rows.Scan(&m.ID, &m.TickerA, &m.TickerB, &m.TheoA, &m.TheoB, &m.EventTime, &m.SettledAt, &m.ResultA, &m.Category); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PostgresStore) MarkMatchSettled(ctx context.Context, matchID, resultA string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE pnl_matches SET result_a = $1, settled_at = now() WHERE id = $2`, resultA, matchID)
	if err != nil {
		return fmt.Errorf("mark match settled: %w", err)
	}
	return nil
}

func (p *PostgresStore) InsertFill(ctx context.Context, f types.Fill) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO fills (fill_id, ticker, side, action, price, count, fee_cost, is_taker, created_time, match_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (fill_id) DO NOTHING`,
		f.FillID, f.Ticker, string(f.Side), f.Action, f.Price, f.Count, f.Fee, f.IsTaker, f.CreatedTime, f.MatchID)
	if err != nil {
		return false, fmt.Errorf("insert fill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (p *PostgresStore) LinkFillsToMatch(ctx context.Context, matchID, tickerA, tickerB string) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE fills SET match_id = $1 WHERE match_id IS NULL AND ticker IN ($2, $3)`,
		matchID, tickerA, tickerB)
	if err != nil {
		return 0, fmt.Errorf("link fills to match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) GetFillsForMatch(ctx context.Context, matchID string) ([]types.Fill, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT fill_id, ticker, side, action, price, count, fee_cost, is_taker, created_time, match_id
		 FROM fills WHERE match_id = $1 ORDER BY created_time`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query fills: %w", err)
	}
	defer rows.Close()
	return scanFills(rows)
}

func (p *PostgresStore) GetAllFillsByMatch(ctx context.Context) (map[string][]types.Fill, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT fill_id, ticker, side, action, price, count, fee_cost, is_taker, created_time, match_id
		 FROM fills WHERE match_id IS NOT NULL ORDER BY created_time`)
	if err != nil {
		return nil, fmt.Errorf("query all fills: %w", err)
	}
	defer rows.Close()

	fills, err := scanFills(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]types.Fill)
	for _, f := range fills {
		out[f.MatchID] = append(out[f.MatchID], f)
	}
	return out, nil
}

func scanFills(rows *sql.Rows) ([]types.Fill, error) {
	var out []types.Fill
	for rows.Next() {
		var f types.Fill
		var side string
		if err := rows.Scan(&f.FillID, &f.Ticker, &side, &f.Action, &f.Price, &f.Count, &f.Fee, &f.IsTaker, &f.CreatedTime, &f.MatchID); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		f.Side = types.Side(side)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *PostgresStore) InsertHedge(ctx context.Context, h types.Hedge) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO hedges (match_id, platform, side, amount_usd, odds, outcome, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		h.MatchID, h.Platform, h.Side, h.AmountUSD, h.Odds, h.Outcome, h.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert hedge: %w", err)
	}
	return id, nil
}

func (p *PostgresStore) UpdateHedgeOutcome(ctx context.Context, hedgeID int64, outcome types.HedgeOutcome) (bool, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE hedges SET outcome = $1 WHERE id = $2`, outcome, hedgeID)
	if err != nil {
		return false, fmt.Errorf("update hedge outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (p *PostgresStore) GetHedgesForMatch(ctx context.Context, matchID string) ([]types.Hedge, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, match_id, platform, side, amount_usd, odds, outcome, created_at
		 FROM hedges WHERE match_id = $1 ORDER BY created_at`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query hedges: %w", err)
	}
	defer rows.Close()
	return scanHedges(rows)
}

func (p *PostgresStore) DeleteHedge(ctx context.Context, hedgeID int64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM hedges WHERE id = $1`, hedgeID)
	if err != nil {
		return false, fmt.Errorf("delete hedge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (p *PostgresStore) GetAllHedgesByMatch(ctx context.Context) (map[string][]types.Hedge, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, match_id, platform, side, amount_usd, odds, outcome, created_at FROM hedges ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query all hedges: %w", err)
	}
	defer rows.Close()

	hedges, err := scanHedges(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]types.Hedge)
	for _, h := range hedges {
		out[h.MatchID] = append(out[h.MatchID], h)
	}
	return out, nil
}

func scanHedges(rows *sql.Rows) ([]types.Hedge, error) {
	var out []types.Hedge
	for rows.Next() {
		var h types.Hedge
		if err := rows.Scan(&h.ID, &h.MatchID, &h.Platform, &h.Side, &h.AmountUSD, &h.Odds, &h.Outcome, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hedge: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-pnl-postgres-store")
	return p.db.Close()
}
