package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POSTRaw(path, body string) error
	StatusCode() int
	GetResponseField(field string) (any, error)
	ResponseContains(field string) bool
}

// RegisterSteps registers generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the screener is healthy$`, steps.screenerIsHealthy)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST "([^"]*)" with body:$`, steps.postDocString)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) screenerIsHealthy(ctx context.Context) error {
	if err := s.tc.GET("/health", nil); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, 200)
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) postDocString(ctx context.Context, path string, body *godog.DocString) error {
	return s.tc.POSTRaw(path, body.Content)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.StatusCode(); got != want {
		return fmt.Errorf("expected status %d, got %d", want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, field string) error {
	if !s.tc.ResponseContains(field) {
		return fmt.Errorf("response has no field %q", field)
	}
	return nil
}
