package payload

import (
	"fmt"
	"strings"
	"time"

	"eduhub/internal/credential/models"

	"github.com/gosimple/slug"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const subjectType = "Person"

// Config carries the deployment values placed into payloads.
type Config struct {
	CredentialImageURL string
	BadgeIconURL       string
	ProfileURLBase     string
}

// Builder turns a validated request into a CredentialPayload.
type Builder struct {
	cfg Config
	seq *Sequencer
}

// NewBuilder returns a builder with its own identifier sequence.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg, seq: &Sequencer{}}
}

// Build fills the template for req. Achievements carry the holder's name,
// email and profile link; badges carry only the badge icon.
func (b *Builder) Build(req models.IssuanceRequest, now time.Time) models.CredentialPayload {
	mode := req.Mode()
	tmpl, _ := Lookup(mode, req.CredentialType)
	stamp := now.UTC().Format(TimestampLayout)

	subject := models.CredentialSubject{
		Type: subjectType,
		Achievement: models.Achievement{
			Name:            tmpl.AchievementName,
			Identifier:      b.identifier(tmpl, req.CredentialType, now),
			Description:     tmpl.AchievementDescription,
			AchievementType: tmpl.Category,
		},
	}
	if mode.IsBadge() {
		subject.Image = b.cfg.BadgeIconURL
	} else {
		subject.Name = req.UserName
		subject.Email = req.UserEmail
		subject.Image = b.cfg.CredentialImageURL
		subject.ProfileURL = b.cfg.ProfileURLBase + req.HolderOCID
	}

	return models.CredentialPayload{
		ValidFrom:         stamp,
		AwardedDate:       stamp,
		Description:       tmpl.Description,
		CredentialSubject: subject,
	}
}

func (b *Builder) identifier(tmpl Template, credentialType string, now time.Time) string {
	parts := []string{tmpl.IdentifierPrefix}
	if tmpl.SlugType {
		if s := slug.Make(credentialType); s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, fmt.Sprint(b.seq.Next(now)))
	return strings.Join(parts, ":")
}
