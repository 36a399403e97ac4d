package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholargraph/countrystats/internal/config"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "countrystats dev")
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "report")
	assert.Contains(t, names, "version")
}

func TestApplyFlags(t *testing.T) {
	cfg := &config.Config{}
	cfg.Report.CountryCode = "EC"
	cfg.Output.DataDir = "data"

	applyFlags(cfg, reportFlags{
		country: "pe",
		yearTo:  2026,
		email:   "researcher@university.edu",
	})

	assert.Equal(t, "PE", cfg.Report.CountryCode)
	assert.Equal(t, 2026, cfg.Report.YearTo)
	assert.Equal(t, "researcher@university.edu", cfg.OpenAlex.Email)
	// Unset flags leave config untouched
	assert.Equal(t, "data", cfg.Output.DataDir)
	assert.Zero(t, cfg.Report.YearFrom)
}
