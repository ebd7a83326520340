package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/infra/storage"
)

const insertResultSQL = `
INSERT INTO wallet_scores (
    id, wallet_address, wallet_key, transport, zscore, score, transaction_count,
    categories, result, error, processing_time_ms, scored_at, created_at
) VALUES (
    CAST(:id AS UUID), :wallet_address, :wallet_key, :transport, :zscore, :score, :transaction_count,
    CAST(CAST(:categories AS TEXT) AS TEXT[]), CAST(:result AS JSONB), :error, :processing_time_ms, :scored_at, :created_at
)`

const selectResultSQL = `
SELECT id::text AS id, wallet_address, wallet_key, transport, zscore, score, transaction_count,
       categories::text AS categories, result::text AS result, error, processing_time_ms, scored_at, created_at
FROM wallet_scores`

// resultRow mirrors a wallet_scores row.
type resultRow struct {
	ID               string         `db:"id"`
	WalletAddress    string         `db:"wallet_address"`
	WalletKey        string         `db:"wallet_key"`
	Transport        string         `db:"transport"`
	ZScore           string         `db:"zscore"`
	Score            float64        `db:"score"`
	TransactionCount int            `db:"transaction_count"`
	Categories       pq.StringArray `db:"categories"`
	Result           string         `db:"result"`
	Error            sql.NullString `db:"error"`
	ProcessingTimeMs int64          `db:"processing_time_ms"`
	ScoredAt         int64          `db:"scored_at"`
	CreatedAt        time.Time      `db:"created_at"`
}

// ResultRepo implements storage.ResultRepository using PostgreSQL.
type ResultRepo struct {
	db *DB
}

// NewResultRepo creates a new PostgreSQL result repository.
func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Save inserts a result.
func (r *ResultRepo) Save(ctx context.Context, result *domain.ArchivedResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	row, err := toRow(result)
	if err != nil {
		return err
	}

	if _, err := r.db.NamedExecContext(ctx, insertResultSQL, row); err != nil {
		return fmt.Errorf("failed to save wallet score: %w", err)
	}
	return nil
}

// ListByWallet returns the newest results for a wallet first.
func (r *ResultRepo) ListByWallet(
	ctx context.Context,
	wallet string,
	limit int,
) ([]*domain.ArchivedResult, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	var rows []resultRow
	query := selectResultSQL + ` WHERE wallet_key = $1 ORDER BY created_at DESC, scored_at DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, storage.WalletKey(wallet), limit); err != nil {
		return nil, fmt.Errorf("failed to list wallet scores: %w", err)
	}

	out := make([]*domain.ArchivedResult, 0, len(rows))
	for i := range rows {
		res, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// DeleteOlderThan removes results created before t.
func (r *ResultRepo) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wallet_scores WHERE created_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("failed to prune wallet scores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned wallet scores: %w", err)
	}
	return n, nil
}

// Count returns the number of archived results.
func (r *ResultRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM wallet_scores`); err != nil {
		return 0, fmt.Errorf("failed to count wallet scores: %w", err)
	}
	return n, nil
}

func toRow(a *domain.ArchivedResult) (*resultRow, error) {
	doc, err := json.Marshal(a.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode wallet score: %w", err)
	}

	categories := make(pq.StringArray, 0, len(a.Result.Categories))
	for _, c := range a.Result.Categories {
		categories = append(categories, c.Category)
	}

	row := &resultRow{
		ID:               a.ID,
		WalletAddress:    a.WalletAddress,
		WalletKey:        storage.WalletKey(a.WalletAddress),
		Transport:        string(a.Transport),
		ZScore:           a.Result.ZScore,
		Score:            a.Result.Score(),
		TransactionCount: a.Result.TransactionCount(),
		Categories:       categories,
		Result:           string(doc),
		ProcessingTimeMs: a.Result.ProcessingTimeMs,
		ScoredAt:         a.Result.Timestamp,
		CreatedAt:        a.CreatedAt,
	}
	if a.Result.Error != nil {
		row.Error = sql.NullString{String: *a.Result.Error, Valid: true}
	}
	return row, nil
}

func fromRow(row *resultRow) (*domain.ArchivedResult, error) {
	var result domain.WalletScoreResult
	if err := json.Unmarshal([]byte(row.Result), &result); err != nil {
		return nil, fmt.Errorf("failed to decode wallet score %s: %w", row.ID, err)
	}
	if result.Categories == nil {
		result.Categories = []domain.CategoryResult{}
	}

	return &domain.ArchivedResult{
		ID:            row.ID,
		WalletAddress: row.WalletAddress,
		Transport:     domain.Transport(row.Transport),
		Result:        result,
		CreatedAt:     row.CreatedAt,
	}, nil
}

var _ storage.ResultRepository = (*ResultRepo)(nil)
