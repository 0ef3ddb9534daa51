package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/policy"
	escrowstore "github.com/xraph/escrow/store"
	"github.com/xraph/escrow/transfer"
)

// Collection name constants.
const (
	colAccounts  = "escrow_accounts"
	colTransfers = "escrow_transfers"
	colConfig    = "escrow_config"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all escrow collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("escrow/mongo: migrate %s indexes: %w", col, err)
		}
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
	m := toAccountModel(a)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrowstore.ErrAlreadyExists
		}
		return fmt.Errorf("escrow/mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	var models []accountModel

	filter := bson.M{}
	if opts.Depositor != "" {
		filter["depositor"] = opts.Depositor
	}
	if opts.Beneficiary != "" {
		filter["beneficiary"] = opts.Beneficiary
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list accounts: %w", err)
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

// UpdateAccount replaces the document only when its version still matches
// a.Version.
func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	m.Version = a.Version + 1
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "version": a.Version}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: update account: %w", err)
	}
	if res.MatchedCount() == 0 {
		n, err := s.mdb.NewFind((*accountModel)(nil)).
			Filter(bson.M{"_id": m.ID}).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("escrow/mongo: update account: %w", err)
		}
		if n == 0 {
			return account.ErrNotFound
		}
		return account.ErrConflict
	}
	a.Version = m.Version
	a.UpdatedAt = m.UpdatedAt
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, accountID id.AccountID) error {
	res, err := s.mdb.NewDelete((*accountModel)(nil)).
		Filter(bson.M{"_id": accountID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: delete account: %w", err)
	}
	if res.DeletedCount() == 0 {
		return account.ErrNotFound
	}
	return nil
}

// CommitAccount writes the account first and then its records. Multi-document
// transactions need a replica set, so the writes are sequential: a failed
// record insert leaves the account update in place and is reported.
func (s *Store) CommitAccount(ctx context.Context, a *account.Account, records ...*transfer.Record) error {
	if err := s.UpdateAccount(ctx, a); err != nil {
		return err
	}
	for _, r := range records {
		if err := s.CreateTransfer(ctx, r); err != nil {
			return fmt.Errorf("escrow/mongo: record %s after account commit: %w", r.ID, err)
		}
	}
	return nil
}

// ==================== Transfer Store ====================

func (s *Store) CreateTransfer(ctx context.Context, r *transfer.Record) error {
	m := toTransferModel(r)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrowstore.ErrAlreadyExists
		}
		return fmt.Errorf("escrow/mongo: create transfer: %w", err)
	}
	return nil
}

func (s *Store) GetTransfer(ctx context.Context, transferID id.TransferID) (*transfer.Record, error) {
	var m transferModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": transferID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, transfer.ErrNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get transfer: %w", err)
	}
	return fromTransferModel(&m)
}

func (s *Store) ListTransfers(ctx context.Context, accountID id.AccountID, opts transfer.ListOpts) ([]*transfer.Record, error) {
	var models []transferModel

	filter := bson.M{"account_id": accountID.String()}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list transfers: %w", err)
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
	var m configModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": configKey}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, policy.ErrNotInitialized
		}
		return nil, fmt.Errorf("escrow/mongo: get config: %w", err)
	}
	return fromConfigModel(&m)
}

func (s *Store) SaveConfig(ctx context.Context, c *policy.Config) error {
	m := toConfigModel(c)
	m.UpdatedAt = now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.UpdatedAt
	}
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": configKey}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: save config: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all escrow collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{
				Keys:    bson.D{{Key: "vault", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "depositor", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "beneficiary", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colTransfers: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "kind", Value: 1}}},
		},
		colConfig: {},
	}
}
