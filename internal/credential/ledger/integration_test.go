//go:build integration

package ledger

import (
	"context"
	"testing"

	"eduhub/pkg/testutil/containers"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestPostgresLedger(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)
	suite.Run(t, &ContractSuite{newLedger: func() Ledger {
		require.NoError(t, pg.TruncateClaims(context.Background()))
		return NewPostgres(pg.DB)
	}})
}

func TestRedisLedger(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	suite.Run(t, &ContractSuite{newLedger: func() Ledger {
		require.NoError(t, rc.Flush(context.Background()))
		return NewRedis(rc.Client, "eduhub_claimed_credentials")
	}})
}

func TestRedisLedgerUndecodableEntry(t *testing.T) {
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.Flush(ctx))
	l := NewRedis(rc.Client, "eduhub_claimed_credentials")

	require.NoError(t, rc.Client.HSet(ctx, "eduhub_claimed_credentials:alice.edu", "bootcamp", "{not json").Err())

	ok, err := l.Has(ctx, "alice.edu", "bootcamp")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = l.Find(ctx, "alice.edu", "bootcamp")
	require.ErrorIs(t, err, ErrNotFound)
}
