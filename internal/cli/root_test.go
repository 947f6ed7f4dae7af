package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"worker", "jobs", "notify", "version"} {
		require.True(t, names[want], "command %q should be registered", want)
	}
}

func TestJobsSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range jobsCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"cleanup", "purge", "purge-crons", "resync", "crons"} {
		require.True(t, names[want], "jobs subcommand %q should be registered", want)
	}
}

func TestPurgeRequiresConfirmation(t *testing.T) {
	purgeConfirmed = false
	err := jobsPurgeCmd.RunE(jobsPurgeCmd, nil)
	require.ErrorContains(t, err, "--yes")
}

func TestNotifyRequiresType(t *testing.T) {
	notifyFlags.notificationType = ""
	err := notifyCmd.RunE(notifyCmd, nil)
	require.ErrorContains(t, err, "--type")
}

func TestVersionString(t *testing.T) {
	require.Contains(t, Version(), "caseflow version")
}
