package payload

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"eduhub/internal/credential/models"
	"eduhub/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	CredentialImageURL: "https://eduhub.dev/eduhub.png",
	BadgeIconURL:       "https://app.eduhub.dev/eduplus.png",
	ProfileURLBase:     "https://id.sandbox.opencampus.xyz/profile/",
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name        string
		mode        models.Mode
		typ         string
		exact       bool
		achievement string
		prefix      string
		category    string
	}{
		{"bootcamp", models.ModeAchievement, "bootcamp", true, "Web3 Developer Bootcamp", "edukit:bootcamp", CategoryCertificate},
		{"tutorial", models.ModeAchievement, "tutorial", true, "OCID & OCA Integration Master", "edukit", CategoryCertificate},
		{"unknown achievement", models.ModeAchievement, "defi-101", false, "OCID & OCA Integration Master", "edukit", CategoryCertificate},
		{"eduplus", models.ModeBadge, "eduplus", true, "EduPlus", "eduhub:eduplus", CategoryBadge},
		{"unknown badge", models.ModeBadge, "Hackathon Winner", false, "EduHub Badge", "eduhub:badge", CategoryBadge},
		{"bootcamp as badge uses badge fallback", models.ModeBadge, "bootcamp", false, "EduHub Badge", "eduhub:badge", CategoryBadge},
		{"eduplus as achievement uses achievement fallback", models.ModeAchievement, "eduplus", false, "OCID & OCA Integration Master", "edukit", CategoryCertificate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, exact := Lookup(tt.mode, tt.typ)
			assert.Equal(t, tt.exact, exact)
			assert.Equal(t, tt.mode, tmpl.Mode)
			assert.Equal(t, tt.achievement, tmpl.AchievementName)
			assert.Equal(t, tt.prefix, tmpl.IdentifierPrefix)
			assert.Equal(t, tt.category, tmpl.Category)
		})
	}
}

func TestTemplatesIsCompleteAndOrdered(t *testing.T) {
	all := Templates()
	require.Len(t, all, 5)

	var keys []string
	for _, tmpl := range all {
		assert.NotEmpty(t, tmpl.Description)
		assert.NotEmpty(t, tmpl.AchievementName)
		assert.NotEmpty(t, tmpl.AchievementDescription)
		keys = append(keys, string(tmpl.Mode)+"/"+tmpl.CredentialType)
	}
	assert.Equal(t, []string{
		"achievement/bootcamp",
		"achievement/tutorial",
		"achievement/",
		"badge/eduplus",
		"badge/",
	}, keys)

	fallbacks := 0
	for _, tmpl := range all {
		if tmpl.Fallback() {
			fallbacks++
			assert.True(t, tmpl.SlugType)
		}
	}
	assert.Equal(t, 2, fallbacks, "one fallback per mode")
}

func TestBuildAchievement(t *testing.T) {
	b := NewBuilder(testConfig)
	p := b.Build(testutil.AchievementRequest("bootcamp"), testutil.FixedTime)

	assert.Equal(t, "2025-03-14T09:26:53.589Z", p.ValidFrom)
	assert.Equal(t, p.ValidFrom, p.AwardedDate)
	assert.Equal(t, "Completed the Educhain Web3 Developer Bootcamp", p.Description)

	s := p.CredentialSubject
	assert.Equal(t, "Alice", s.Name)
	assert.Equal(t, "a@x.com", s.Email)
	assert.Equal(t, "Person", s.Type)
	assert.Equal(t, testConfig.CredentialImageURL, s.Image)
	assert.Equal(t, "https://id.sandbox.opencampus.xyz/profile/alice.edu", s.ProfileURL)
	assert.Equal(t, "edukit:bootcamp:1741944413589", s.Achievement.Identifier)
	assert.Equal(t, "Successfully completed the Web3 Developer Bootcamp by EduHub", s.Achievement.Description)
	assert.Equal(t, CategoryCertificate, s.Achievement.AchievementType)
}

func TestBuildBadgeCarriesOnlyImage(t *testing.T) {
	b := NewBuilder(testConfig)
	p := b.Build(testutil.BadgeRequest("eduplus"), testutil.FixedTime)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"validFrom": "2025-03-14T09:26:53.589Z",
		"awardedDate": "2025-03-14T09:26:53.589Z",
		"description": "Earn this badge by completing the 'Intro to Blockchain' and 'Intro to OCID & OCA' guides on EduHub, then mint verifiable credentials on-chain to prove your learning. Issued to EOA wallet for Yuzu Season 3 eligibility.",
		"credentialSubject": {
			"type": "Person",
			"image": "https://app.eduhub.dev/eduplus.png",
			"achievement": {
				"name": "EduPlus",
				"identifier": "eduhub:eduplus:1741944413589",
				"description": "Completed both Blockchain Workshop and OCID & OCA Tutorial on EduHub",
				"achievementType": "Badge"
			}
		}
	}`, string(raw))
}

func TestBuildFallbackIdentifiersIncludeSluggedType(t *testing.T) {
	b := NewBuilder(testConfig)

	badge := b.Build(testutil.BadgeRequest("Hackathon Winner 2025"), testutil.FixedTime)
	assert.True(t, strings.HasPrefix(badge.CredentialSubject.Achievement.Identifier, "eduhub:badge:hackathon-winner-2025:"))

	ach := b.Build(testutil.AchievementRequest("DeFi 101"), testutil.FixedTime)
	assert.True(t, strings.HasPrefix(ach.CredentialSubject.Achievement.Identifier, "edukit:defi-101:"))

	tut := b.Build(testutil.AchievementRequest("tutorial"), testutil.FixedTime)
	assert.Regexp(t, `^edukit:\d+$`, tut.CredentialSubject.Achievement.Identifier)

	unsluggable := b.Build(testutil.BadgeRequest("!!!"), testutil.FixedTime)
	assert.Regexp(t, `^eduhub:badge:\d+$`, unsluggable.CredentialSubject.Achievement.Identifier)
}

func TestIdentifiersAreUniqueWithinOneMillisecond(t *testing.T) {
	b := NewBuilder(testConfig)
	seen := map[string]bool{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := b.Build(testutil.AchievementRequest("bootcamp"), testutil.FixedTime).CredentialSubject.Achievement.Identifier
			mu.Lock()
			defer mu.Unlock()
			seen[id] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestSequencer(t *testing.T) {
	var s Sequencer
	base := testutil.FixedTime

	first := s.Next(base)
	assert.Equal(t, base.UnixMilli(), first)
	assert.Equal(t, first+1, s.Next(base), "same millisecond is bumped")
	assert.Equal(t, first+2, s.Next(base.Add(-time.Second)), "clock stepping back still increases")
	assert.Equal(t, base.Add(time.Minute).UnixMilli(), s.Next(base.Add(time.Minute)))
}
