package ledger

import (
	"context"
	"sync"

	"eduhub/internal/credential/models"
)

// Memory is a process-local ledger. Tests get a fresh one per case.
type Memory struct {
	mu     sync.RWMutex
	claims []models.ClaimRecord
}

// NewMemory constructs an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Has(ctx context.Context, holderID, credentialType string) (bool, error) {
	return has(ctx, m, holderID, credentialType)
}

func (m *Memory) Find(_ context.Context, holderID, credentialType string) (models.ClaimRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := findIn(m.claims, holderID, credentialType); ok {
		return c, nil
	}
	return models.ClaimRecord{}, ErrNotFound
}

func (m *Memory) Record(_ context.Context, claim models.ClaimRecord) error {
	if err := validateClaim(claim); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := findIn(m.claims, claim.HolderID(), claim.CredentialType); ok {
		return nil
	}
	m.claims = append(m.claims, claim)
	return nil
}

func (m *Memory) ListFor(_ context.Context, holderID string) ([]models.ClaimRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterHolder(m.claims, holderID), nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = nil
	return nil
}
