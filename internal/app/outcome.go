package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/techdivision/import-app-simple/internal/logging"
)

// Outcome classifies how an import run ended.
type Outcome int

const (
	// OutcomeSuccess means every module ran.
	OutcomeSuccess Outcome = iota
	// OutcomeFinished means a module ended the run early on purpose.
	OutcomeFinished
	// OutcomeStopped means a module stopped the run with an exit code.
	OutcomeStopped
	// OutcomeAlreadyRunning means another import held the lock store.
	OutcomeAlreadyRunning
	// OutcomeFailure means the run failed with an error or panic.
	OutcomeFailure
)

type disposition struct {
	label    string
	level    slog.Level
	exitCode int
	commit   bool
}

var dispositions = map[Outcome]disposition{
	OutcomeSuccess:        {label: "success", level: slog.LevelInfo, exitCode: 0, commit: true},
	OutcomeFinished:       {label: "finished", level: logging.LevelNotice, exitCode: 0, commit: true},
	OutcomeStopped:        {label: "stopped", level: slog.LevelInfo, exitCode: 1, commit: false},
	OutcomeAlreadyRunning: {label: "already_running", level: slog.LevelWarn, exitCode: 1, commit: false},
	OutcomeFailure:        {label: "failure", level: slog.LevelError, exitCode: 1, commit: false},
}

func (o Outcome) String() string {
	if d, ok := dispositions[o]; ok {
		return d.label
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Level returns the severity the run completion is logged with.
func (o Outcome) Level() slog.Level {
	if d, ok := dispositions[o]; ok {
		return d.level
	}
	return slog.LevelError
}

// Commit reports whether a shared transaction is committed for this outcome.
func (o Outcome) Commit() bool {
	return dispositions[o].commit
}

// ExitCode returns the process exit code for this outcome. stopCode is used
// for OutcomeStopped; values <= 0 fall back to 1.
func (o Outcome) ExitCode(stopCode int) int {
	if o == OutcomeStopped && stopCode > 0 {
		return stopCode
	}
	if d, ok := dispositions[o]; ok {
		return d.exitCode
	}
	return 1
}

// ParseOutcome maps a label produced by String back to its Outcome.
func ParseOutcome(label string) (Outcome, bool) {
	for outcome, d := range dispositions {
		if d.label == label {
			return outcome, true
		}
	}
	return 0, false
}

// Result describes a finished import run.
type Result struct {
	Serial   string
	Outcome  Outcome
	ExitCode int
	// Reason carries the message passed to Stop or Finish.
	Reason   string
	Err      error
	Duration time.Duration
}
