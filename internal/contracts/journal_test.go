package contracts

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDecisionJournalEntry_ContentHash(t *testing.T) {
	posID := uuid.New()
	entry := &DecisionJournalEntry{
		ID:         "01J8ZC3W9T4N2YV5XKQJH6B7RD",
		PositionID: &posID,
		Author:     "rc",
		Body:       "entered DI1F26 long on carry view",
		CreatedAt:  time.Now(),
	}

	entry.ContentHash = entry.ComputeContentHash()

	if !entry.VerifyContentHash() {
		t.Error("hash should verify against unchanged content")
	}

	// Hash is stable across calls
	if entry.ComputeContentHash() != entry.ContentHash {
		t.Error("ComputeContentHash should be deterministic")
	}

	// Any content change invalidates the hash
	entry.Body = "entered DI1F26 long on carry view (edited)"
	if entry.VerifyContentHash() {
		t.Error("hash should not verify after content change")
	}
}

func TestDecisionJournalEntry_HashIgnoresLockState(t *testing.T) {
	entry := &DecisionJournalEntry{Author: "rc", Body: "note"}
	entry.ContentHash = entry.ComputeContentHash()

	entry.IsLocked = true
	if !entry.VerifyContentHash() {
		t.Error("locking must not change the content hash")
	}
}
