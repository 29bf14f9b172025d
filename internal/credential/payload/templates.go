// Package payload builds the credential documents sent to the issuer from a
// closed table of templates keyed by issuance mode and credential type.
package payload

import (
	"sort"

	"eduhub/internal/credential/models"
)

// Achievement categories understood by the issuer.
const (
	CategoryCertificate = "Certificate"
	CategoryBadge       = "Badge"
)

// Template describes the fixed text of one credential kind. A template with
// an empty CredentialType is the fallback for its mode.
type Template struct {
	Mode                   models.Mode
	CredentialType         string
	Description            string
	AchievementName        string
	AchievementDescription string
	IdentifierPrefix       string
	Category               string
	// SlugType appends the slugged credential type to IdentifierPrefix so
	// arbitrary types get distinguishable identifiers.
	SlugType bool
}

// Fallback reports whether t serves credential types without their own entry.
func (t Template) Fallback() bool {
	return t.CredentialType == ""
}

type templateKey struct {
	mode           models.Mode
	credentialType string
}

const (
	tutorialDescription            = "Completed the OCID and OCA Integration Tutorial"
	tutorialAchievementName        = "OCID & OCA Integration Master"
	tutorialAchievementDescription = "Successfully completed the comprehensive tutorial on integrating OCID Connect and Open Campus Achievements into dApps."
)

var templates = map[templateKey]Template{
	{models.ModeAchievement, "bootcamp"}: {
		Description:            "Completed the Educhain Web3 Developer Bootcamp",
		AchievementName:        "Web3 Developer Bootcamp",
		AchievementDescription: "Successfully completed the Web3 Developer Bootcamp by EduHub",
		IdentifierPrefix:       "edukit:bootcamp",
		Category:               CategoryCertificate,
	},
	{models.ModeAchievement, "tutorial"}: {
		Description:            tutorialDescription,
		AchievementName:        tutorialAchievementName,
		AchievementDescription: tutorialAchievementDescription,
		IdentifierPrefix:       "edukit",
		Category:               CategoryCertificate,
	},
	{models.ModeAchievement, ""}: {
		Description:            tutorialDescription,
		AchievementName:        tutorialAchievementName,
		AchievementDescription: tutorialAchievementDescription,
		IdentifierPrefix:       "edukit",
		Category:               CategoryCertificate,
		SlugType:               true,
	},
	{models.ModeBadge, "eduplus"}: {
		Description:            "Earn this badge by completing the 'Intro to Blockchain' and 'Intro to OCID & OCA' guides on EduHub, then mint verifiable credentials on-chain to prove your learning. Issued to EOA wallet for Yuzu Season 3 eligibility.",
		AchievementName:        "EduPlus",
		AchievementDescription: "Completed both Blockchain Workshop and OCID & OCA Tutorial on EduHub",
		IdentifierPrefix:       "eduhub:eduplus",
		Category:               CategoryBadge,
	},
	{models.ModeBadge, ""}: {
		Description:            "EduHub Achievement Badge - Issued to EOA for Yuzu Season 3 eligibility",
		AchievementName:        "EduHub Badge",
		AchievementDescription: "Achievement badge from EduHub",
		IdentifierPrefix:       "eduhub:badge",
		Category:               CategoryBadge,
		SlugType:               true,
	},
}

func init() {
	for k, t := range templates {
		t.Mode = k.mode
		t.CredentialType = k.credentialType
		templates[k] = t
	}
}

// Lookup returns the template for (mode, credentialType), falling back to
// the mode's generic template. The bool reports an exact match.
func Lookup(mode models.Mode, credentialType string) (Template, bool) {
	if credentialType != "" {
		if t, ok := templates[templateKey{mode, credentialType}]; ok {
			return t, true
		}
	}
	return templates[templateKey{mode, ""}], false
}

// Templates lists every template, achievements first, fallbacks last within
// each mode.
func Templates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Mode != b.Mode {
			return a.Mode == models.ModeAchievement
		}
		if a.Fallback() != b.Fallback() {
			return !a.Fallback()
		}
		return a.CredentialType < b.CredentialType
	})
	return out
}
