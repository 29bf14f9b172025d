package claims

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	DELETE(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetAdminToken() string
}

// RegisterSteps registers claim query and admin step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	ctx.Step(`^I list the claims of "([^"]*)"$`, func(_ context.Context, holder string) error {
		return tc.GET("/claims/"+holder, nil)
	})

	ctx.Step(`^I check whether "([^"]*)" holds "([^"]*)"$`, func(_ context.Context, holder, credentialType string) error {
		return tc.GET("/claims/"+holder+"/"+credentialType, nil)
	})

	ctx.Step(`^the response should list (\d+) claims?$`, func(_ context.Context, expected int) error {
		value, err := tc.GetResponseField("claims")
		if err != nil {
			return err
		}
		claims, ok := value.([]any)
		if !ok {
			return fmt.Errorf("claims is not an array: %v", value)
		}
		if len(claims) != expected {
			return fmt.Errorf("expected %d claims, got %d", expected, len(claims))
		}
		return nil
	})

	ctx.Step(`^I clear the claim ledger as an admin$`, func(context.Context) error {
		return tc.DELETE("/admin/claims", map[string]string{"X-Admin-Token": tc.GetAdminToken()})
	})

	ctx.Step(`^I clear the claim ledger with token "([^"]*)"$`, func(_ context.Context, token string) error {
		return tc.DELETE("/admin/claims", map[string]string{"X-Admin-Token": token})
	})
}
