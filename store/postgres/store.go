package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the pg migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/policy"
	escrowstore "github.com/xraph/escrow/store"
	"github.com/xraph/escrow/transfer"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("escrow/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("escrow/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	m, err := toAccountModel(a)
	if err != nil {
		return err
	}
	_, err = s.pg.NewInsert(m).Exec(ctx)
	return mapInsertErr(err)
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	var models []accountModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Depositor != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("depositor = $%d", argIdx), opts.Depositor)
	}
	if opts.Beneficiary != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("beneficiary = $%d", argIdx), opts.Beneficiary)
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m, err := toAccountModel(a)
	if err != nil {
		return err
	}
	m.Version = a.Version + 1
	m.UpdatedAt = now()

	res, err := s.pg.NewUpdate(m).
		WherePK().
		Where("version = ?", a.Version).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.missingOrConflict(ctx, a.ID)
	}
	a.Version = m.Version
	a.UpdatedAt = m.UpdatedAt
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, accountID id.AccountID) error {
	res, err := s.pg.NewDelete((*accountModel)(nil)).
		Where("id = ?", accountID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return account.ErrNotFound
	}
	return nil
}

// CommitAccount applies the account update and inserts the records in one
// transaction.
func (s *Store) CommitAccount(ctx context.Context, a *account.Account, records ...*transfer.Record) (err error) {
	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("escrow/postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error wins
		}
	}()

	m, err := toAccountModel(a)
	if err != nil {
		return err
	}
	m.Version = a.Version + 1
	m.UpdatedAt = now()

	res, err := tx.NewUpdate(m).
		WherePK().
		Where("version = ?", a.Version).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		_ = tx.Rollback() //nolint:errcheck // release the writer before re-reading
		return s.missingOrConflict(ctx, a.ID)
	}

	for _, r := range records {
		if _, err = tx.NewInsert(toTransferModel(r)).Exec(ctx); err != nil {
			return mapInsertErr(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("escrow/postgres: commit: %w", err)
	}
	a.Version = m.Version
	a.UpdatedAt = m.UpdatedAt
	return nil
}

// missingOrConflict distinguishes a deleted account from a stale version
// after an update matched no rows.
func (s *Store) missingOrConflict(ctx context.Context, accountID id.AccountID) error {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.ErrNotFound
		}
		return err
	}
	return account.ErrConflict
}

// ==================== Transfer Store ====================

func (s *Store) CreateTransfer(ctx context.Context, r *transfer.Record) error {
	_, err := s.pg.NewInsert(toTransferModel(r)).Exec(ctx)
	return mapInsertErr(err)
}

func (s *Store) GetTransfer(ctx context.Context, transferID id.TransferID) (*transfer.Record, error) {
	m := new(transferModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", transferID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, transfer.ErrNotFound
		}
		return nil, err
	}
	return fromTransferModel(m)
}

func (s *Store) ListTransfers(ctx context.Context, accountID id.AccountID, opts transfer.ListOpts) ([]*transfer.Record, error) {
	var models []transferModel
	q := s.pg.NewSelect(&models).Where("account_id = $1", accountID.String())

	if opts.Kind != "" {
		q = q.Where("kind = $2", string(opts.Kind))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*transfer.Record, len(models))
	for i := range models {
		r, err := fromTransferModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Config Store ====================

func (s *Store) GetConfig(ctx context.Context) (*policy.Config, error) {
	m := new(configModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", configKey).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, policy.ErrNotInitialized
		}
		return nil, err
	}
	return fromConfigModel(m)
}

func (s *Store) SaveConfig(ctx context.Context, c *policy.Config) error {
	m := toConfigModel(c)
	m.UpdatedAt = now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.UpdatedAt
	}
	_, err := s.pg.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("admin = EXCLUDED.admin").
		Set("min_escrow_amount = EXCLUDED.min_escrow_amount").
		Set("max_escrow_duration_secs = EXCLUDED.max_escrow_duration_secs").
		Set("max_pause_resume_count = EXCLUDED.max_pause_resume_count").
		Set("halted = EXCLUDED.halted").
		Set("allow_custom = EXCLUDED.allow_custom").
		Set("require_preset_duration = EXCLUDED.require_preset_duration").
		Set("version = EXCLUDED.version").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// mapInsertErr translates a unique violation into store.ErrAlreadyExists.
func mapInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return escrowstore.ErrAlreadyExists
	}
	return err
}
