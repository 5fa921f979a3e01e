package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DefaultCodeTTL bounds how long a generated verification code stays usable.
const DefaultCodeTTL = 10 * time.Minute

// DefaultSweepInterval paces the background sweep that deletes expired rows
// independently of lookup-triggered deletion.
const DefaultSweepInterval = time.Minute

// VerificationCodes stores time-boxed, single-use numeric codes keyed by an
// opaque owner string.
type VerificationCodes interface {
	QueryOrGenerate(ctx context.Context, owner string) (string, error)
	QueryOrGenerateTx(ctx context.Context, tx bun.IDB, owner string) (string, error)
	Verify(ctx context.Context, owner, candidate string) (bool, error)
	VerifyTx(ctx context.Context, tx bun.IDB, owner, candidate string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type verificationCodes struct {
	db  *bun.DB
	ttl time.Duration
}

var _ VerificationCodes = (*verificationCodes)(nil)

// NewVerificationCodesRepository builds the code store. A zero ttl falls back
// to DefaultCodeTTL.
func NewVerificationCodesRepository(db *bun.DB, ttl time.Duration) VerificationCodes {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &verificationCodes{db: db, ttl: ttl}
}

func (r *verificationCodes) QueryOrGenerate(ctx context.Context, owner string) (string, error) {
	return r.QueryOrGenerateTx(ctx, r.db, owner)
}

// QueryOrGenerateTx returns the unexpired code for owner, creating one when
// none exists. Concurrent creators for the same owner are serialized by the
// primary-key constraint, not by read-then-write: the insert is
// ON CONFLICT DO NOTHING and the follow-up select reads whichever row won.
func (r *verificationCodes) QueryOrGenerateTx(ctx context.Context, tx bun.IDB, owner string) (string, error) {
	if owner == "" {
		return "", goerrors.New("verification code owner is required", goerrors.CategoryBadInput)
	}

	candidate, err := generateCode()
	if err != nil {
		return "", err
	}

	record := &VerificationCode{
		Owner:     owner,
		Code:      candidate,
		CreatedAt: time.Now(),
	}

	if _, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (owner) DO NOTHING").
		Exec(ctx); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert verification code")
	}

	row := &VerificationCode{}
	if err := tx.NewSelect().
		Model(row).
		Where("?TableAlias.owner = ?", owner).
		Limit(1).
		Scan(ctx); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load verification code")
	}

	if !row.ExpiredAt(time.Now(), r.ttl) {
		return row.Code, nil
	}

	// The surviving row outlived its TTL between sweeps; replace it in place.
	// The created_at guard keeps concurrent refreshers from clobbering a
	// newer code.
	res, err := tx.NewUpdate().
		Model((*VerificationCode)(nil)).
		Set("code = ?", candidate).
		Set("created_at = ?", record.CreatedAt).
		Where("owner = ?", owner).
		Where("created_at = ?", row.CreatedAt).
		Exec(ctx)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to refresh verification code")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// someone else refreshed first; re-read their code
		if err := tx.NewSelect().
			Model(row).
			Where("?TableAlias.owner = ?", owner).
			Limit(1).
			Scan(ctx); err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reload verification code")
		}
		return row.Code, nil
	}

	return candidate, nil
}

func (r *verificationCodes) Verify(ctx context.Context, owner, candidate string) (bool, error) {
	return r.VerifyTx(ctx, r.db, owner, candidate)
}

// VerifyTx deletes the row on match, making the code single use. A mismatch
// leaves the row intact so the caller can retry within the TTL.
func (r *verificationCodes) VerifyTx(ctx context.Context, tx bun.IDB, owner, candidate string) (bool, error) {
	if owner == "" || candidate == "" {
		return false, nil
	}

	cutoff := time.Now().Add(-r.ttl)
	res, err := tx.NewDelete().
		Model((*VerificationCode)(nil)).
		Where("owner = ?", owner).
		Where("code = ?", candidate).
		Where("created_at > ?", cutoff).
		Exec(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify code")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read verification result")
	}

	return n > 0, nil
}

// DeleteExpired removes rows older than the TTL regardless of lookups.
func (r *verificationCodes) DeleteExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-r.ttl)
	res, err := r.db.NewDelete().
		Model((*VerificationCode)(nil)).
		Where("created_at <= ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sweep verification codes")
	}
	return res.RowsAffected()
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// CodeSweeper deletes expired verification codes on a fixed interval, as a
// defense against missed lookup-triggered deletions.
type CodeSweeper struct {
	codes    VerificationCodes
	interval time.Duration
	logger   Logger
}

// NewCodeSweeper builds a sweeper over the given store. A zero interval falls
// back to DefaultSweepInterval.
func NewCodeSweeper(codes VerificationCodes, interval time.Duration, logger Logger) *CodeSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &CodeSweeper{
		codes:    codes,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks, sweeping until ctx is done. Callers usually run it in its own
// goroutine for the life of the process.
func (s *CodeSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.codes.DeleteExpired(ctx); err != nil {
				s.logger.Warn("verification code sweep error: %v", err)
			} else if n > 0 {
				s.logger.Debug("verification code sweep removed %d expired rows", n)
			}
		}
	}
}

// CreateVerificationCodesTable creates the backing table when the host app
// does not run migrations. Safe to call repeatedly.
func CreateVerificationCodesTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*VerificationCode)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}
