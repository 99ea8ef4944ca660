package services

import (
	"testing"

	"github.com/easywinget/backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassify_KeywordRules(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantStage domain.Stage
		wantProg  int
	}{
		{"starting", "Starting task...", domain.StageInit, 15},
		{"package id", "Package ID: App.Foo", domain.StageInit, 15},
		{"running", "Running: winget install App.Foo...", domain.StageSearch, 30},
		{"searching", "Searching packages", domain.StageSearch, 30},
		{"download", "Downloading installer...", domain.StageDownload, 50},
		{"install", "Installing package", domain.StageInstall, 70},
		{"upgrading", "Upgrading from 1.0", domain.StageUpdate, 70},
		{"uninstalling matches install first", "Uninstalling App", domain.StageInstall, 70},
		{"removing", "Removing files", domain.StageUninstall, 70},
		{"verifying", "Verifying hash", domain.StageVerify, 85},
		{"case insensitive", "DOWNLOAD STARTED", domain.StageDownload, 50},
		{"no keyword", "hello world", domain.StageInit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, prog := Classify(tt.text, domain.SeverityInfo, domain.StageInit, 0)
			assert.Equal(t, tt.wantStage, stage)
			assert.Equal(t, tt.wantProg, prog)
		})
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	// "running:" is checked before "install"
	stage, prog := Classify("Running: winget install App.Foo...", domain.SeverityInfo, domain.StageInit, 15)
	assert.Equal(t, domain.StageSearch, stage)
	assert.Equal(t, 30, prog)
}

func TestClassify_NeverMovesBackwards(t *testing.T) {
	stage, prog := Classify("Downloading more bits", domain.SeverityInfo, domain.StageInstall, 70)
	assert.Equal(t, domain.StageInstall, stage)
	assert.Equal(t, 70, prog)

	stage, prog = Classify("Starting task...", domain.SeverityInfo, domain.StageSearch, 30)
	assert.Equal(t, domain.StageSearch, stage)
	assert.Equal(t, 30, prog)
}

func TestClassify_TerminalStagesAreSticky(t *testing.T) {
	for _, prior := range []domain.Stage{domain.StageComplete, domain.StageError} {
		stage, prog := Classify("Installing again", domain.SeverityInfo, prior, 100)
		assert.Equal(t, prior, stage)
		assert.Equal(t, 100, prog)
	}
}

func TestClassify_SeverityOverrides(t *testing.T) {
	stage, prog := Classify("whatever", domain.SeveritySuccess, domain.StageSearch, 30)
	assert.Equal(t, domain.StageComplete, stage)
	assert.Equal(t, 100, prog)

	stage, prog = Classify("Downloading failed", domain.SeverityError, domain.StageDownload, 50)
	assert.Equal(t, domain.StageError, stage)
	assert.Equal(t, 100, prog)
}

func TestClassify_ProgressMonotonicOverSequence(t *testing.T) {
	lines := []string{
		"Starting task...",
		"Package ID: App.Foo",
		"Running: winget install App.Foo...",
		"Found App [App.Foo]",
		"Downloading https://example.com/app.exe",
		"Starting package install...",
		"Verifying hash",
		"Downloading leftover",
	}
	stage, prog := domain.StageInit, 0
	for _, l := range lines {
		next, nextProg := Classify(l, domain.SeverityInfo, stage, prog)
		assert.GreaterOrEqual(t, nextProg, prog, l)
		assert.GreaterOrEqual(t, stageRank[next], stageRank[stage], l)
		stage, prog = next, nextProg
	}
	assert.Equal(t, domain.StageVerify, stage)
	assert.Equal(t, 85, prog)
}

func TestStageLabel(t *testing.T) {
	assert.Equal(t, "Preparing...", domain.StageInit.Label())
	assert.Equal(t, "Searching packages...", domain.StageSearch.Label())
	assert.Equal(t, "Completed!", domain.StageComplete.Label())
	assert.Equal(t, "Failed", domain.StageError.Label())
	assert.Equal(t, "Initializing...", domain.Stage("bogus").Label())
}
