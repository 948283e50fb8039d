package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	got := Check("  Jane.Doe@GMAIL.com ")
	assert.Equal(t, Entry{
		Input:      "  Jane.Doe@GMAIL.com ",
		Valid:      true,
		Normalized: "Jane.Doe@gmail.com",
		LocalPart:  "Jane.Doe",
		Domain:     "gmail.com",
		Provider:   "Gmail",
		Personal:   true,
	}, got)

	got = Check("ops@company.com")
	assert.True(t, got.Valid)
	assert.False(t, got.Personal)
	assert.Empty(t, got.Provider)

	got = Check("not-an-email")
	assert.Equal(t, Entry{Input: "not-an-email"}, got)
}

func TestBuildAndSummarize(t *testing.T) {
	inputs := []string{
		"a@gmail.com",
		"b@googlemail.com",
		"c@outlook.com",
		"d@company.com",
		"bad",
		"",
	}
	entries := Build(inputs)
	require.Len(t, entries, len(inputs))
	for i, e := range entries {
		assert.Equal(t, inputs[i], e.Input)
	}

	s := Summarize(entries)
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 4, s.Valid)
	assert.Equal(t, 2, s.Invalid)
	assert.Equal(t, 3, s.Personal)
	assert.Equal(t, map[string]int{"Gmail": 2, "Outlook": 1}, s.ByProvider)

	assert.Equal(t, []ProviderCount{
		{Provider: "Gmail", Count: 2},
		{Provider: "Outlook", Count: 1},
	}, s.Providers())
}

func TestBuild_Empty(t *testing.T) {
	entries := Build(nil)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	s := Summarize(entries)
	assert.Zero(t, s.Total)
	assert.NotNil(t, s.ByProvider)
}
