package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/screening/models"
	id "screener/pkg/domain"
	"screener/pkg/requestcontext"
)

func TestNewReportCreated(t *testing.T) {
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	created := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	r := &models.ScreeningReport{
		ID:              id.NewReportID(),
		Request:         models.ScreeningRequest{DisplayName: "Ivan Petrov", NationalID: "811228-9874"},
		Matches:         []models.MatchCandidate{{RecordID: "1"}},
		ScreenedSources: []models.ScreenedSource{{SourceID: "a"}, {SourceID: "b"}},
		RiskLevel:       models.RiskHigh,
		Status:          models.ReportCompleted,
		CreatedAt:       created,
	}

	event := NewReportCreated(ctx, r)
	payload, err := event.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, TypeReportCreated, decoded["type"])
	assert.Equal(t, r.ID.String(), decoded["report_id"])
	assert.Equal(t, "high", decoded["risk_level"])
	assert.Equal(t, float64(2), decoded["screened_sources"])
	assert.Equal(t, "req-42", decoded["request_id"])
	assert.NotContains(t, string(payload), "811228", "identifiers never leave the service")
}

func TestNewKafkaPublisherRequiresConfig(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "topic")
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}
