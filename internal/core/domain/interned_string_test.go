package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pake/internal/core/domain"
)

func TestInternedString_SameHandle(t *testing.T) {
	a := domain.NewInternedString("build/ol.js")
	b := domain.NewInternedString("build/ol.js")

	assert.Equal(t, a.Value(), b.Value())
	assert.Equal(t, "build/ol.js", a.String())
	assert.False(t, a.IsZero())
}

func TestInternedString_Zero(t *testing.T) {
	var zero domain.InternedString

	assert.True(t, zero.IsZero())
	assert.Empty(t, zero.String())
}

func TestInternedString_JSON(t *testing.T) {
	type row struct {
		Target domain.InternedString `json:"target"`
	}

	data, err := json.Marshal(row{Target: domain.NewInternedString("lint")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"target":"lint"}`, string(data))

	var decoded row
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, domain.NewInternedString("lint"), decoded.Target)
}

func TestNewInternedStrings(t *testing.T) {
	names := domain.NewInternedStrings([]string{"build", "lint", "build"})

	require.Len(t, names, 3)
	assert.Equal(t, "lint", names[1].String())
	assert.Equal(t, names[0].Value(), names[2].Value())
	assert.Empty(t, domain.NewInternedStrings(nil))
}
