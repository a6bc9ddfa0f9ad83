package e2e

import (
	"github.com/cucumber/godog"

	"screener/e2e/steps/common"
	"screener/e2e/steps/screening"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register screening-specific steps
	screening.RegisterSteps(ctx, tc)
}
