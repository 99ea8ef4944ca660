package services

import (
	"strings"

	"github.com/easywinget/backend/internal/domain"
)

type stageRule struct {
	keywords []string
	stage    domain.Stage
	progress int
}

// First match wins.
var stageRules = []stageRule{
	{[]string{"package id", "starting"}, domain.StageInit, 15},
	{[]string{"running:", "searching"}, domain.StageSearch, 30},
	{[]string{"download"}, domain.StageDownload, 50},
	{[]string{"install"}, domain.StageInstall, 70},
	{[]string{"upgrading", "update"}, domain.StageUpdate, 70},
	{[]string{"uninstalling", "removing"}, domain.StageUninstall, 70},
	{[]string{"verifying", "configuring"}, domain.StageVerify, 85},
}

var stageRank = map[domain.Stage]int{
	domain.StageInit:      0,
	domain.StageSearch:    1,
	domain.StageDownload:  2,
	domain.StageInstall:   3,
	domain.StageUpdate:    3,
	domain.StageUninstall: 3,
	domain.StageVerify:    4,
}

// Classify derives the next stage and progress of a task from one log line.
// Keyword rules never move a task backwards; a success or error severity
// always pins the task to its terminal stage at 100.
func Classify(text string, severity domain.Severity, prior domain.Stage, priorProgress int) (domain.Stage, int) {
	stage, progress := prior, priorProgress

	if !prior.IsTerminal() {
		lower := strings.ToLower(text)
		for _, rule := range stageRules {
			if !containsAny(lower, rule.keywords) {
				continue
			}
			if stageRank[rule.stage] >= stageRank[prior] && rule.progress >= priorProgress {
				stage, progress = rule.stage, rule.progress
			}
			break
		}
	}

	switch severity {
	case domain.SeveritySuccess:
		return domain.StageComplete, 100
	case domain.SeverityError:
		return domain.StageError, 100
	}
	return stage, progress
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
