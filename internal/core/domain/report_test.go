package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pake/internal/core/domain"
)

func TestReport_Err(t *testing.T) {
	cause := &domain.CommandError{Argv: []string{"cc"}, ExitCode: 1}
	report := &domain.Report{Results: []domain.TargetResult{
		{Name: "a", State: domain.StateBuilt},
		{Name: "b", State: domain.StateFailed, Err: cause},
		{Name: "c", State: domain.StateSkipped, Err: domain.ErrDependencyFailed},
		{Name: "d", State: domain.StateNotNeeded},
	}}

	assert.False(t, report.OK())
	err := report.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.ErrorIs(t, err, domain.ErrCommandFailed)
	assert.Equal(t, 1, domain.ExitCode(err))

	assert.Len(t, report.Filter(domain.StateSkipped), 1)
	res, ok := report.Result("c")
	require.True(t, ok)
	assert.Equal(t, "skipped", res.Outcome())
	_, ok = report.Result("zzz")
	assert.False(t, ok)
}

func TestReport_OK(t *testing.T) {
	report := &domain.Report{DryRun: true, Results: []domain.TargetResult{
		{Name: "a", State: domain.StatePending},
		{Name: "b", State: domain.StateNotNeeded},
	}}
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
	assert.Equal(t, "would build", report.Results[0].Outcome())
	assert.Equal(t, "up to date", report.Results[1].Outcome())
}
