package refresh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"fraudengine/internal/config"
)

func TestSourceNames(t *testing.T) {
	p := NewPipeline(nil, nil, config.RefreshScheduleConfig{}, config.RefreshSourcesConfig{})
	names := p.SourceNames()
	assert.ElementsMatch(t, []string{"tor", "disposable_emails", "asn", "user_agents"}, names)
}

func TestRun_UnknownSourceReportsError(t *testing.T) {
	p := NewPipeline(nil, nil, config.RefreshScheduleConfig{}, config.RefreshSourcesConfig{})
	report := p.Run(context.Background(), []string{"not_a_real_source"}, false)

	sr := report.Sources["not_a_real_source"]
	assert.False(t, sr.Success)
	assert.NotEmpty(t, sr.Error)
	assert.Equal(t, 0, report.Total)
}
