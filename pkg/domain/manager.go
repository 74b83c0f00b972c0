package domain

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opskitchen/snapkeeper/pkg/appcontext"
)

// RunManager decides how the backup job is triggered. Without a cron
// spec the job runs exactly once per process invocation and the external
// scheduler owns retries and alerting. With a cron spec the process
// stays resident and triggers runs on the schedule itself.
type RunManager struct {
	logger logrus.FieldLogger

	service backupRunner
	status  *RunStatusStore

	cron     cron
	cronSpec string

	// serializes runs so cron ticks never overlap
	mu sync.Mutex
}

type backupRunner interface {
	Run(context.Context) (Result, error)
}

type cron interface {
	AddFunc(spec string, cmd func()) error
	Start()
}

func NewRunManager(
	logger logrus.FieldLogger,
	service backupRunner,
	status *RunStatusStore,
	cron cron,
	cronSpec string,
) *RunManager {
	return &RunManager{
		logger: logger,

		service: service,
		status:  status,

		cron:     cron,
		cronSpec: cronSpec,
	}
}

// Daemon reports whether the manager keeps the process resident.
func (m *RunManager) Daemon() bool {
	return m.cronSpec != ""
}

// Run executes the job once and returns its error, or, in daemon mode,
// registers the job with cron and returns after starting the schedule.
func (m *RunManager) Run(ctx context.Context) error {
	if !m.Daemon() {
		_, err := m.runOnce(ctx)
		return err
	}

	err := m.cron.AddFunc(m.cronSpec, func() {
		// a failed scheduled run waits for the next tick
		if _, err := m.runOnce(context.Background()); err != nil {
			m.logger.WithError(err).Error("Scheduled backup run failed")
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid cron spec %q", m.cronSpec)
	}

	m.logger.WithField("spec", m.cronSpec).Debug("Starting cron")
	m.cron.Start()

	return nil
}

func (m *RunManager) runOnce(ctx context.Context) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = appcontext.WithRunId(ctx, newRunId())
	logger := appcontext.LoggerFromContext(m.logger, ctx)

	startedAt := time.Now()
	logger.Info("Starting backup run")

	result, err := m.service.Run(ctx)

	status := RunStatus{
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Created:    result.Created,
		Deleted:    result.Deleted,
		Failures:   result.Failures,
		Summary:    result.Summary,
	}

	if err != nil {
		status.Error = err.Error()
		logger.WithError(err).Error("Backup run failed")
	} else {
		logger.WithFields(logrus.Fields{
			"created":  result.Created,
			"deleted":  result.Deleted,
			"failures": result.Failures,
		}).Info("Backup run finished")
	}

	m.status.Record(status)

	return result, err
}

func newRunId() string {
	var buf = make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return fmt.Sprintf("%02x", buf)
}
