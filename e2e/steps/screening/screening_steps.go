package screening

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	StatusCode() int
	Header(name string) string
	GetResponseField(field string) (any, error)
	Save(key, value string)
	Saved(key string) string
}

// RegisterSteps registers screening step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &screeningSteps{tc: tc}

	ctx.Step(`^I screen "([^"]*)"$`, steps.screen)
	ctx.Step(`^I screen "([^"]*)" in jurisdictions "([^"]*)"$`, steps.screenInJurisdictions)
	ctx.Step(`^a screening for "([^"]*)" has been created$`, steps.screeningCreated)
	ctx.Step(`^I retrieve the report by its token$`, steps.retrieveReport)
	ctx.Step(`^I export the report$`, steps.exportReport)

	ctx.Step(`^the response should carry a report token$`, steps.responseCarriesToken)
	ctx.Step(`^the report history should be "([^"]*)"$`, steps.historyShouldBe)
	ctx.Step(`^the export should be an attachment$`, steps.exportIsAttachment)
}

type screeningSteps struct {
	tc TestContext
}

func (s *screeningSteps) screen(ctx context.Context, name string) error {
	return s.post(map[string]any{"display_name": name})
}

func (s *screeningSteps) screenInJurisdictions(ctx context.Context, name, jurisdictions string) error {
	return s.post(map[string]any{
		"display_name":  name,
		"jurisdictions": strings.Split(jurisdictions, ","),
	})
}

func (s *screeningSteps) post(body map[string]any) error {
	if err := s.tc.POST("/screenings", body); err != nil {
		return err
	}
	if s.tc.StatusCode() == 201 {
		if token, err := s.tc.GetResponseField("token"); err == nil {
			s.tc.Save("token", fmt.Sprint(token))
		}
	}
	return nil
}

func (s *screeningSteps) screeningCreated(ctx context.Context, name string) error {
	if err := s.screen(ctx, name); err != nil {
		return err
	}
	if s.tc.StatusCode() != 201 {
		return fmt.Errorf("screening was not created: status %d (are sources configured?)", s.tc.StatusCode())
	}
	return nil
}

func (s *screeningSteps) retrieveReport(ctx context.Context) error {
	return s.tc.GET("/screenings/"+s.token(), nil)
}

func (s *screeningSteps) exportReport(ctx context.Context) error {
	return s.tc.GET("/screenings/"+s.token()+"/export", nil)
}

func (s *screeningSteps) token() string {
	if t := s.tc.Saved("token"); t != "" {
		return t
	}
	return "missing-token"
}

func (s *screeningSteps) responseCarriesToken(ctx context.Context) error {
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	if len(fmt.Sprint(token)) < 32 {
		return fmt.Errorf("token %q is too short to be unguessable", token)
	}
	return nil
}

func (s *screeningSteps) historyShouldBe(ctx context.Context, want string) error {
	raw, err := s.tc.GetResponseField("history")
	if err != nil {
		return err
	}
	entries, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("history is not a list")
	}
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			return fmt.Errorf("history entry is not an object")
		}
		actions = append(actions, fmt.Sprint(entry["action"]))
	}
	if got := strings.Join(actions, ","); got != want {
		return fmt.Errorf("expected history %q, got %q", want, got)
	}
	return nil
}

func (s *screeningSteps) exportIsAttachment(ctx context.Context) error {
	if cd := s.tc.Header("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		return fmt.Errorf("expected attachment disposition, got %q", cd)
	}
	return nil
}
