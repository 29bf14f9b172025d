package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"eduhub/internal/credential/models"

	"github.com/redis/go-redis/v9"
)

// Redis keeps one hash per holder, "<key>:<holderId>", with a field per
// credential type. HSETNX makes the first write win across processes.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis constructs a Redis-backed ledger under the key prefix.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	return &Redis{client: client, prefix: key + ":"}
}

// Has agrees with Find: an entry that cannot be decoded is not a claim.
func (r *Redis) Has(ctx context.Context, holderID, credentialType string) (bool, error) {
	return has(ctx, r, holderID, credentialType)
}

// Find loads the claim for the pair. An unreadable entry is reported as
// ErrNotFound.
func (r *Redis) Find(ctx context.Context, holderID, credentialType string) (models.ClaimRecord, error) {
	if holderID == "" {
		return models.ClaimRecord{}, ErrNotFound
	}
	data, err := r.client.HGet(ctx, r.holderKey(holderID), credentialType).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ClaimRecord{}, ErrNotFound
		}
		return models.ClaimRecord{}, fmt.Errorf("find claim: %w", err)
	}
	var claim models.ClaimRecord
	if err := json.Unmarshal(data, &claim); err != nil {
		return models.ClaimRecord{}, ErrNotFound
	}
	return claim, nil
}

func (r *Redis) Record(ctx context.Context, claim models.ClaimRecord) error {
	if err := validateClaim(claim); err != nil {
		return err
	}
	payload, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("encode claim: %w", err)
	}
	if err := r.client.HSetNX(ctx, r.holderKey(claim.HolderID()), claim.CredentialType, payload).Err(); err != nil {
		return fmt.Errorf("record claim: %w", err)
	}
	return nil
}

// ListFor skips entries that cannot be decoded.
func (r *Redis) ListFor(ctx context.Context, holderID string) ([]models.ClaimRecord, error) {
	out := make([]models.ClaimRecord, 0)
	if holderID == "" {
		return out, nil
	}
	fields, err := r.client.HGetAll(ctx, r.holderKey(holderID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	for _, raw := range fields {
		var claim models.ClaimRecord
		if err := json.Unmarshal([]byte(raw), &claim); err != nil {
			continue
		}
		out = append(out, claim)
	}
	sortOldestFirst(out)
	return out, nil
}

// Clear deletes every holder hash under the prefix.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("clear claims: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan claims: %w", err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("clear claims: %w", err)
		}
	}
	return nil
}

func (r *Redis) holderKey(holderID string) string {
	return r.prefix + holderID
}

func sortOldestFirst(claims []models.ClaimRecord) {
	sort.SliceStable(claims, func(i, j int) bool {
		if claims[i].IssuedAt.Equal(claims[j].IssuedAt) {
			return claims[i].CredentialType < claims[j].CredentialType
		}
		return claims[i].IssuedAt.Before(claims[j].IssuedAt)
	})
}
