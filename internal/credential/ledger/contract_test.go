package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eduhub/internal/credential/models"
	dErrors "eduhub/pkg/domain-errors"
	"eduhub/pkg/testutil"

	"github.com/stretchr/testify/suite"
)

// ContractSuite holds the behaviour every Ledger backend must share. Each
// backend test embeds it and sets newLedger.
type ContractSuite struct {
	suite.Suite
	newLedger func() Ledger
	ledger    Ledger
	ctx       context.Context
}

func (s *ContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.ledger = s.newLedger()
}

func (s *ContractSuite) TestEmptyLedgerHasNothing() {
	ok, err := s.ledger.Has(s.ctx, testutil.HolderOCID, "bootcamp")
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.ledger.Find(s.ctx, testutil.HolderOCID, "bootcamp")
	s.ErrorIs(err, ErrNotFound)

	claims, err := s.ledger.ListFor(s.ctx, testutil.HolderOCID)
	s.Require().NoError(err)
	s.Empty(claims)
}

func (s *ContractSuite) TestRecordThenHas() {
	s.Run("identity holder", func() {
		claim := testutil.NewClaimBuilder().Build()
		s.Require().NoError(s.ledger.Record(s.ctx, claim))

		ok, err := s.ledger.Has(s.ctx, testutil.HolderOCID, "bootcamp")
		s.Require().NoError(err)
		s.True(ok)

		found, err := s.ledger.Find(s.ctx, testutil.HolderOCID, "bootcamp")
		s.Require().NoError(err)
		s.Equal(claim.HolderOCID, found.HolderOCID)
		s.True(claim.IssuedAt.Equal(found.IssuedAt))
	})

	s.Run("wallet holder", func() {
		claim := testutil.NewClaimBuilder().ForAddress(testutil.HolderAddress).OfType("eduplus").Build()
		s.Require().NoError(s.ledger.Record(s.ctx, claim))

		found, err := s.ledger.Find(s.ctx, testutil.HolderAddress, "eduplus")
		s.Require().NoError(err)
		s.True(found.IsOCB)
		s.Empty(found.HolderOCID)
	})

	s.Run("other types and holders stay unclaimed", func() {
		ok, err := s.ledger.Has(s.ctx, testutil.HolderOCID, "tutorial")
		s.Require().NoError(err)
		s.False(ok)

		ok, err = s.ledger.Has(s.ctx, "bob.edu", "bootcamp")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("empty holder never matches", func() {
		ok, err := s.ledger.Has(s.ctx, "", "bootcamp")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ContractSuite) TestRecordIsFirstWriteWins() {
	first := testutil.NewClaimBuilder().Build()
	second := testutil.NewClaimBuilder().IssuedAt(first.IssuedAt.Add(time.Hour)).Build()

	s.Require().NoError(s.ledger.Record(s.ctx, first))
	s.Require().NoError(s.ledger.Record(s.ctx, first))
	s.Require().NoError(s.ledger.Record(s.ctx, second))

	claims, err := s.ledger.ListFor(s.ctx, testutil.HolderOCID)
	s.Require().NoError(err)
	s.Require().Len(claims, 1)
	s.True(first.IssuedAt.Equal(claims[0].IssuedAt))
}

func (s *ContractSuite) TestRecordRejectsClaimWithoutHolder() {
	err := s.ledger.Record(s.ctx, models.ClaimRecord{CredentialType: "bootcamp", IssuedAt: testutil.FixedTime})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.True(errors.Is(err, ErrNoHolder))
}

func (s *ContractSuite) TestListForReturnsOldestFirst() {
	base := testutil.FixedTime
	s.Require().NoError(s.ledger.Record(s.ctx, testutil.NewClaimBuilder().OfType("tutorial").IssuedAt(base.Add(2*time.Minute)).Build()))
	s.Require().NoError(s.ledger.Record(s.ctx, testutil.NewClaimBuilder().OfType("bootcamp").IssuedAt(base).Build()))
	s.Require().NoError(s.ledger.Record(s.ctx, testutil.NewClaimBuilder().ForOCID("bob.edu").OfType("bootcamp").Build()))

	claims, err := s.ledger.ListFor(s.ctx, testutil.HolderOCID)
	s.Require().NoError(err)
	s.Require().Len(claims, 2)
	s.Equal("bootcamp", claims[0].CredentialType)
	s.Equal("tutorial", claims[1].CredentialType)
}

func (s *ContractSuite) TestClearRemovesEverything() {
	s.Require().NoError(s.ledger.Record(s.ctx, testutil.NewClaimBuilder().Build()))
	s.Require().NoError(s.ledger.Record(s.ctx, testutil.NewClaimBuilder().ForAddress(testutil.HolderAddress).OfType("eduplus").Build()))

	s.Require().NoError(s.ledger.Clear(s.ctx))

	for _, holder := range []string{testutil.HolderOCID, testutil.HolderAddress} {
		claims, err := s.ledger.ListFor(s.ctx, holder)
		s.Require().NoError(err)
		s.Empty(claims)
	}
	s.Require().NoError(s.ledger.Clear(s.ctx), "clearing an empty ledger is fine")
}

func (s *ContractSuite) TestConcurrentRecordLeavesOneEntry() {
	result := testutil.RunConcurrent(20, func(idx int) error {
		claim := testutil.NewClaimBuilder().IssuedAt(testutil.FixedTime.Add(time.Duration(idx) * time.Millisecond)).Build()
		return s.ledger.Record(s.ctx, claim)
	})
	s.Equal(int32(20), result.Successes)

	claims, err := s.ledger.ListFor(s.ctx, testutil.HolderOCID)
	s.Require().NoError(err)
	s.Len(claims, 1)
}

func (s *ContractSuite) TestManyHolders() {
	for i := range 5 {
		holder := fmt.Sprintf("learner-%d.edu", i)
		s.Require().NoError(s.ledger.Record(s.ctx, testutil.NewClaimBuilder().ForOCID(holder).Build()))
	}
	for i := range 5 {
		ok, err := s.ledger.Has(s.ctx, fmt.Sprintf("learner-%d.edu", i), "bootcamp")
		s.Require().NoError(err)
		s.True(ok)
	}
}
