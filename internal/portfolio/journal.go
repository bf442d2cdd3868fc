package portfolio

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/rcampos/macrodesk/internal/contracts"
)

// JournalRepository persists decision-journal entries. Locked entries are
// immutable: the repository refuses to touch them, and a database trigger
// backstops any path that slips through.
type JournalRepository struct {
	pool *pgxpool.Pool
}

func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

const journalColumns = `id, position_id, proposal_id, author, body, content_hash, is_locked, created_at`

// newEntryID returns a ULID so ids sort in append order.
func newEntryID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}

// Append writes a new unlocked entry, assigning its ID and content hash.
func (r *JournalRepository) Append(ctx context.Context, e *contracts.DecisionJournalEntry) error {
	return appendJournalEntry(ctx, r.pool, e)
}

func appendJournalEntry(ctx context.Context, q querier, e *contracts.DecisionJournalEntry) error {
	if e.ID == "" {
		e.ID = newEntryID()
	}
	e.ContentHash = e.ComputeContentHash()
	e.IsLocked = false

	query := `
		INSERT INTO desk.journal_entries (id, position_id, proposal_id, author, body, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		e.ID, e.PositionID, e.ProposalID, e.Author, e.Body, e.ContentHash,
	).Scan(&e.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("journal entry %s: %w", e.ID, contracts.ErrDuplicateNaturalKey)
	}
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// GetByID returns an entry or ErrNotFound.
func (r *JournalRepository) GetByID(ctx context.Context, id string) (*contracts.DecisionJournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM desk.journal_entries WHERE id = $1`
	e, err := scanJournalEntry(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("journal entry %s: %w", id, contracts.ErrNotFound)
	}
	return e, err
}

// ListByPosition returns a position's entries in append order.
func (r *JournalRepository) ListByPosition(ctx context.Context, positionID uuid.UUID) ([]contracts.DecisionJournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM desk.journal_entries WHERE position_id = $1 ORDER BY id`
	return r.list(ctx, query, positionID)
}

// List returns the most recent entries, newest first.
func (r *JournalRepository) List(ctx context.Context, limit int) ([]contracts.DecisionJournalEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM desk.journal_entries ORDER BY id DESC LIMIT %d`, journalColumns, limit)
	return r.list(ctx, query)
}

func (r *JournalRepository) list(ctx context.Context, query string, args ...any) ([]contracts.DecisionJournalEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var out []contracts.DecisionJournalEntry
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Amend rewrites the body of an UNLOCKED entry and recomputes its hash.
// Amending a locked entry is ErrImmutabilityViolation.
func (r *JournalRepository) Amend(ctx context.Context, id, body string) (*contracts.DecisionJournalEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + journalColumns + ` FROM desk.journal_entries WHERE id = $1 FOR UPDATE`
	e, err := scanJournalEntry(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("journal entry %s: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if e.IsLocked {
		return nil, fmt.Errorf("journal entry %s is locked: %w", id, contracts.ErrImmutabilityViolation)
	}

	e.Body = body
	e.ContentHash = e.ComputeContentHash()

	_, err = tx.Exec(ctx,
		`UPDATE desk.journal_entries SET body = $2, content_hash = $3 WHERE id = $1`,
		id, e.Body, e.ContentHash)
	if isImmutabilityViolation(err) {
		return nil, fmt.Errorf("journal entry %s is locked: %w", id, contracts.ErrImmutabilityViolation)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to amend journal entry: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit amendment: %w", err)
	}
	return e, nil
}

// Delete removes an UNLOCKED entry. Deleting a locked entry is
// ErrImmutabilityViolation.
func (r *JournalRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM desk.journal_entries WHERE id = $1`, id)
	if isImmutabilityViolation(err) {
		return fmt.Errorf("journal entry %s is locked: %w", id, contracts.ErrImmutabilityViolation)
	}
	if err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("journal entry %s: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// Lock makes an entry permanently immutable. Locking an already-locked
// entry is a no-op, so the guard trigger never fires on re-lock.
func (r *JournalRepository) Lock(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE desk.journal_entries SET is_locked = TRUE WHERE id = $1 AND NOT is_locked`, id)
	if err != nil {
		return fmt.Errorf("failed to lock journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either absent or already locked; only absence is an error.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func scanJournalEntry(row pgx.Row) (*contracts.DecisionJournalEntry, error) {
	var e contracts.DecisionJournalEntry
	err := row.Scan(&e.ID, &e.PositionID, &e.ProposalID, &e.Author, &e.Body,
		&e.ContentHash, &e.IsLocked, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan journal entry: %w", err)
	}
	return &e, nil
}
