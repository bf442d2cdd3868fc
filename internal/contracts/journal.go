package contracts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DecisionJournalEntry is an append-only audit record tied to a position
// and/or proposal. Once IsLocked is set the row can never be updated or
// deleted; the storage layer rejects any such attempt with
// ErrImmutabilityViolation.
type DecisionJournalEntry struct {
	// ID is a ULID: lexically sortable, so the journal reads in append order.
	ID          string     `json:"id"`
	PositionID  *uuid.UUID `json:"position_id,omitempty"`
	ProposalID  *uuid.UUID `json:"proposal_id,omitempty"`
	Author      string     `json:"author"`
	Body        string     `json:"body"`
	ContentHash string     `json:"content_hash"`
	IsLocked    bool       `json:"is_locked"`
	CreatedAt   time.Time  `json:"created_at"`
}

// journalDigest is the canonical form hashed into ContentHash. Field order
// is fixed by the struct; changing it invalidates existing hashes.
type journalDigest struct {
	PositionID *uuid.UUID `json:"position_id"`
	ProposalID *uuid.UUID `json:"proposal_id"`
	Author     string     `json:"author"`
	Body       string     `json:"body"`
}

// ComputeContentHash returns the sha256 hex digest of the entry's canonical
// content. Stored alongside the row so tampering is detectable even if the
// lock were bypassed at the database level.
func (e *DecisionJournalEntry) ComputeContentHash() string {
	raw, _ := json.Marshal(journalDigest{
		PositionID: e.PositionID,
		ProposalID: e.ProposalID,
		Author:     e.Author,
		Body:       e.Body,
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// VerifyContentHash reports whether the stored hash matches the content.
func (e *DecisionJournalEntry) VerifyContentHash() bool {
	return e.ContentHash == e.ComputeContentHash()
}
