package issuance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"eduhub/e2e/issuerstub"
	"eduhub/internal/platform/config"
)

const (
	userName  = "Alice Example"
	userEmail = "alice@example.edu"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
	GetIssuer() *issuerstub.Server
	GetConfig() *config.Server
}

type steps struct {
	tc         TestContext
	rememberAt string
}

// RegisterSteps registers issuance and issuer stub step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &steps{tc: tc}

	// Issuer stub
	ctx.Step(`^the issuer responds with status (\d+) and body "([^"]*)"$`, s.issuerRespondsText)
	ctx.Step(`^the issuer responds with status (\d+) and JSON body '([^']*)'$`, s.issuerRespondsJSON)
	ctx.Step(`^no issuer API keys are configured$`, s.noKeys)
	ctx.Step(`^only the achievement API key is configured$`, s.onlyAchievementKey)

	// Requests
	ctx.Step(`^I request an? "([^"]*)" achievement for "([^"]*)"$`, s.requestAchievement)
	ctx.Step(`^I request an? "([^"]*)" achievement for "([^"]*)" that the client already claimed$`, s.requestClaimedAchievement)
	ctx.Step(`^I request an? "([^"]*)" badge for wallet "([^"]*)"$`, s.requestBadge)
	ctx.Step(`^I request an? "([^"]*)" badge for wallet "([^"]*)" with identity "([^"]*)"$`, s.requestBadgeWithIdentity)
	ctx.Step(`^I request an? "([^"]*)" achievement without a holder$`, s.requestWithoutHolder)

	// Issuer assertions
	ctx.Step(`^the issuer should have received (\d+) requests?$`, s.issuerReceived)
	ctx.Step(`^the last issuer request should use the API key "([^"]*)"$`, s.lastRequestKey)
	ctx.Step(`^the last issuer request field "([^"]*)" should equal "([^"]*)"$`, s.lastRequestFieldEquals)
	ctx.Step(`^the last issuer request field "([^"]*)" should start with "([^"]*)"$`, s.lastRequestFieldPrefix)
	ctx.Step(`^the last issuer request should not have field "([^"]*)"$`, s.lastRequestFieldAbsent)

	// Issuance time
	ctx.Step(`^I remember the issuance time$`, s.rememberIssuedAt)
	ctx.Step(`^the response issuedAt should equal the remembered issuance time$`, s.issuedAtMatches)
}

func (s *steps) issuerRespondsText(_ context.Context, status int, body string) error {
	s.tc.GetIssuer().Respond(status, body, "text/plain")
	return nil
}

func (s *steps) issuerRespondsJSON(_ context.Context, status int, body string) error {
	s.tc.GetIssuer().Respond(status, body, "application/json")
	return nil
}

func (s *steps) noKeys(context.Context) error {
	cfg := s.tc.GetConfig()
	cfg.Issuer.AchievementKey = ""
	cfg.Issuer.BadgeKey = ""
	return nil
}

func (s *steps) onlyAchievementKey(context.Context) error {
	s.tc.GetConfig().Issuer.BadgeKey = ""
	return nil
}

func (s *steps) requestAchievement(_ context.Context, credentialType, holder string) error {
	return s.tc.POST("/issue-credential", map[string]any{
		"credentialType": credentialType,
		"holderOcId":     holder,
		"userName":       userName,
		"userEmail":      userEmail,
		"isOCB":          false,
	})
}

func (s *steps) requestClaimedAchievement(_ context.Context, credentialType, holder string) error {
	return s.tc.POST("/issue-credential", map[string]any{
		"credentialType": credentialType,
		"holderOcId":     holder,
		"userName":       userName,
		"userEmail":      userEmail,
		"alreadyClaimed": true,
	})
}

func (s *steps) requestBadge(_ context.Context, credentialType, wallet string) error {
	return s.tc.POST("/issue-credential", map[string]any{
		"credentialType": credentialType,
		"holderAddress":  wallet,
		"userName":       userName,
		"userEmail":      userEmail,
		"isOCB":          true,
	})
}

func (s *steps) requestBadgeWithIdentity(_ context.Context, credentialType, wallet, holder string) error {
	return s.tc.POST("/issue-credential", map[string]any{
		"credentialType": credentialType,
		"holderAddress":  wallet,
		"holderOcId":     holder,
		"userName":       userName,
		"userEmail":      userEmail,
		"isOCB":          true,
	})
}

func (s *steps) requestWithoutHolder(_ context.Context, credentialType string) error {
	return s.tc.POST("/issue-credential", map[string]any{
		"credentialType": credentialType,
		"userName":       userName,
		"userEmail":      userEmail,
	})
}

func (s *steps) issuerReceived(_ context.Context, expected int) error {
	if got := len(s.tc.GetIssuer().Calls()); got != expected {
		return fmt.Errorf("expected %d issuer requests, got %d", expected, got)
	}
	return nil
}

func (s *steps) lastCall() (issuerstub.Call, error) {
	calls := s.tc.GetIssuer().Calls()
	if len(calls) == 0 {
		return issuerstub.Call{}, fmt.Errorf("issuer received no requests")
	}
	return calls[len(calls)-1], nil
}

func (s *steps) lastRequestKey(_ context.Context, expected string) error {
	call, err := s.lastCall()
	if err != nil {
		return err
	}
	if call.APIKey != expected {
		return fmt.Errorf("expected X-API-KEY %q, got %q", expected, call.APIKey)
	}
	return nil
}

func (s *steps) lastRequestField(field string) (any, bool, error) {
	call, err := s.lastCall()
	if err != nil {
		return nil, false, err
	}
	var value any = call.Body
	for _, part := range strings.Split(field, ".") {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		if value, ok = obj[part]; !ok {
			return nil, false, nil
		}
	}
	return value, true, nil
}

func (s *steps) lastRequestFieldEquals(_ context.Context, field, expected string) error {
	value, ok, err := s.lastRequestField(field)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("issuer request has no field %s", field)
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("expected issuer request %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *steps) lastRequestFieldPrefix(_ context.Context, field, prefix string) error {
	value, ok, err := s.lastRequestField(field)
	if err != nil {
		return err
	}
	if !ok || !strings.HasPrefix(fmt.Sprint(value), prefix) {
		return fmt.Errorf("expected issuer request %s to start with %q, got %v", field, prefix, value)
	}
	return nil
}

func (s *steps) lastRequestFieldAbsent(_ context.Context, field string) error {
	value, ok, err := s.lastRequestField(field)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("expected issuer request to omit %s, got %v", field, value)
	}
	return nil
}

// rememberIssuedAt keeps the millisecond timestamp of a 200 in the ISO form a 409 reports.
func (s *steps) rememberIssuedAt(context.Context) error {
	value, err := s.tc.GetResponseField("claimRecord.issuedAt")
	if err != nil {
		return err
	}
	ms, ok := value.(float64)
	if !ok {
		return fmt.Errorf("claimRecord.issuedAt is not a number: %v", value)
	}
	s.rememberAt = time.UnixMilli(int64(ms)).UTC().Format("2006-01-02T15:04:05.000Z")
	return nil
}

func (s *steps) issuedAtMatches(context.Context) error {
	if s.rememberAt == "" {
		return fmt.Errorf("no issuance time remembered")
	}
	value, err := s.tc.GetResponseField("issuedAt")
	if err != nil {
		return err
	}
	if value != s.rememberAt {
		return fmt.Errorf("expected issuedAt %s, got %v", s.rememberAt, value)
	}
	return nil
}

