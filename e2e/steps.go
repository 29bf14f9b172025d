package e2e

import (
	"github.com/cucumber/godog"

	"eduhub/e2e/steps/claims"
	"eduhub/e2e/steps/common"
	"eduhub/e2e/steps/issuance"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	issuance.RegisterSteps(ctx, tc)
	claims.RegisterSteps(ctx, tc)
}
