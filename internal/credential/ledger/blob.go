package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"eduhub/internal/credential/models"
)

var (
	// ErrBlobNotFound is returned by BlobStore.Load for a missing blob.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrVersionConflict is returned by BlobStore.Save when the blob changed
	// after it was loaded.
	ErrVersionConflict = errors.New("blob changed since it was read")
)

// BlobStore holds named byte blobs. Stores that support conditional writes
// return a version from Load and honour it in Save; an empty version on Save
// means the blob must not exist yet. Stores without conditional writes
// return "" and ignore it.
type BlobStore interface {
	Load(ctx context.Context, name string) (data []byte, version string, err error)
	Save(ctx context.Context, name string, data []byte, version string) error
	Delete(ctx context.Context, name string) error
}

const maxSaveAttempts = 5

// Blob keeps every claim in one JSON array under a well-known key, the same
// layout browsers keep in local storage. Unreadable contents read as an empty
// ledger and are replaced by the next Record.
type Blob struct {
	store  BlobStore
	name   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewBlob stores the array as "<key>.json" in store.
func NewBlob(store BlobStore, key string, logger *slog.Logger) *Blob {
	if logger == nil {
		logger = slog.Default()
	}
	return &Blob{store: store, name: key + ".json", logger: logger}
}

func (b *Blob) Has(ctx context.Context, holderID, credentialType string) (bool, error) {
	return has(ctx, b, holderID, credentialType)
}

func (b *Blob) Find(ctx context.Context, holderID, credentialType string) (models.ClaimRecord, error) {
	claims, _, err := b.load(ctx)
	if err != nil {
		return models.ClaimRecord{}, err
	}
	if c, ok := findIn(claims, holderID, credentialType); ok {
		return c, nil
	}
	return models.ClaimRecord{}, ErrNotFound
}

func (b *Blob) Record(ctx context.Context, claim models.ClaimRecord) error {
	if err := validateClaim(claim); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for attempt := 1; ; attempt++ {
		claims, version, err := b.load(ctx)
		if err != nil {
			return err
		}
		if _, ok := findIn(claims, claim.HolderID(), claim.CredentialType); ok {
			return nil
		}

		data, err := json.Marshal(append(claims, claim))
		if err != nil {
			return fmt.Errorf("encode claims: %w", err)
		}
		err = b.store.Save(ctx, b.name, data, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) || attempt == maxSaveAttempts {
			return fmt.Errorf("save claims: %w", err)
		}
		b.logger.DebugContext(ctx, "claim ledger changed concurrently, retrying", "attempt", attempt)
	}
}

func (b *Blob) ListFor(ctx context.Context, holderID string) ([]models.ClaimRecord, error) {
	claims, _, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	return filterHolder(claims, holderID), nil
}

func (b *Blob) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.Delete(ctx, b.name); err != nil {
		return fmt.Errorf("clear claims: %w", err)
	}
	return nil
}

func (b *Blob) load(ctx context.Context) ([]models.ClaimRecord, string, error) {
	data, version, err := b.store.Load(ctx, b.name)
	if errors.Is(err, ErrBlobNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load claims: %w", err)
	}
	claims, err := decodeClaims(data)
	if err != nil {
		b.logger.WarnContext(ctx, "claim ledger unreadable, treating as empty",
			"blob", b.name,
			"error", err,
		)
		return nil, version, nil
	}
	return claims, version, nil
}

func decodeClaims(data []byte) ([]models.ClaimRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var claims []models.ClaimRecord
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}
