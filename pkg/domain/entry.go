package domain

import "fmt"

type Step int

const (
	// Entry produced while creating and tagging snapshots
	StepBackup Step = iota

	// Entry produced while sweeping expired snapshots
	StepCleanup
)

// Entry is the outcome of one item processed during a run. Failed items
// produce entries just like successful ones, so per-item isolation shows
// up in the run report as data instead of being hidden in control flow.
type Entry struct {
	Step Step

	InstanceId string
	VolumeId   string
	SnapshotId string

	Message string
	Err     error
}

func (e Entry) Failed() bool {
	return e.Err != nil
}

// Line renders the entry as a single report line.
func (e Entry) Line() string {
	if e.Err != nil {
		return fmt.Sprintf("ERROR: %s: %s", e.Message, e.Err)
	}

	return e.Message
}

// Result is what the invoker sees after a successful run.
type Result struct {
	StatusCode int
	Summary    string

	Created  int
	Deleted  int
	Failures int
}
