package types

import "errors"

var ErrRunNotFound = errors.New("run not found")

type RunStatus string

const (
	RunRunning      RunStatus = "running"
	RunSucceeded    RunStatus = "succeeded"
	RunCompileError RunStatus = "compile_error"
	RunRuntimeError RunStatus = "runtime_error"
	RunTimeout      RunStatus = "timeout"
	RunFailed       RunStatus = "failed"
)

// MaxOutputBytes bounds each stored output stream.
const MaxOutputBytes = 64 << 10

// RunResult is the terminal state of a run as stored by the runner.
type RunResult struct {
	RunID         string
	RoomID        string
	Status        RunStatus
	Stdout        string
	Stderr        string
	CompileOutput string
	Message       string
	ExitCode      *int
	TimeMs        int
	MemoryKB      int
}
