package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	ResponseContains(text string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	ctx.Step(`^the EduHub gateway is running$`, func(context.Context) error { return nil })

	ctx.Step(`^I GET "([^"]*)"$`, func(_ context.Context, path string) error {
		return tc.GET(path, nil)
	})

	ctx.Step(`^the response status should be (\d+)$`, func(_ context.Context, expected int) error {
		if got := tc.GetLastResponseStatus(); got != expected {
			return fmt.Errorf("expected status %d, got %d: %s", expected, got, string(tc.GetLastResponseBody()))
		}
		return nil
	})

	ctx.Step(`^the response should contain "([^"]*)"$`, func(_ context.Context, text string) error {
		if !tc.ResponseContains(text) {
			return fmt.Errorf("response does not contain %q: %s", text, string(tc.GetLastResponseBody()))
		}
		return nil
	})

	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, func(_ context.Context, field, expected string) error {
		value, err := tc.GetResponseField(field)
		if err != nil {
			return err
		}
		if got := fmt.Sprint(value); got != expected {
			return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
		}
		return nil
	})

	ctx.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, func(_ context.Context, field, expected string) error {
		value, err := tc.GetResponseField(field)
		if err != nil {
			return err
		}
		if !strings.Contains(fmt.Sprint(value), expected) {
			return fmt.Errorf("expected %s to contain %q, got %v", field, expected, value)
		}
		return nil
	})

	ctx.Step(`^the response field "([^"]*)" should be null$`, func(_ context.Context, field string) error {
		value, err := tc.GetResponseField(field)
		if err != nil {
			return err
		}
		if value != nil {
			return fmt.Errorf("expected %s to be null, got %v", field, value)
		}
		return nil
	})

	ctx.Step(`^the response should not have field "([^"]*)"$`, func(_ context.Context, field string) error {
		if _, err := tc.GetResponseField(field); err == nil {
			return fmt.Errorf("expected no %s field: %s", field, string(tc.GetLastResponseBody()))
		}
		return nil
	})
}
