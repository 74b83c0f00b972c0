package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opskitchen/snapkeeper/pkg/appcontext"
)

// computeClient is the EC2 surface this job consumes. *ec2.Client
// satisfies it.
type computeClient interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
	DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error)
}

// ReportStore persists the run report produced by a single invocation.
// It returns the key the report was stored under.
type ReportStore interface {
	Save(ctx context.Context, startedAt time.Time, lines []string) (string, error)
}

type Config struct {
	// Instances carrying TagKey=TagValue are backed up
	TagKey   string
	TagValue string

	// Snapshots whose CreatedOn date is strictly older than
	// today-RetentionDays are deleted
	RetentionDays int
}

type BackupService struct {
	logger logrus.FieldLogger

	compute computeClient
	reports ReportStore
	config  Config

	now func() time.Time
}

func NewBackupService(
	logger logrus.FieldLogger,
	compute computeClient,
	reports ReportStore,
	config Config,
) *BackupService {
	return &BackupService{
		logger:  logger,
		compute: compute,
		reports: reports,
		config:  config,
		now:     time.Now,
	}
}

// Run performs one full invocation: create backups, sweep expired ones,
// persist the run report. A systemic failure during backup creation is
// still reported (with a top-level failure line) before it is returned
// to the invoker. A report persistence failure is logged and never
// alters the run outcome.
func (s *BackupService) Run(ctx context.Context) (Result, error) {
	logger := appcontext.LoggerFromContext(s.logger, ctx)

	startedAt := s.now()

	entries, created, err := s.CreateBackups(ctx)
	if err == nil {
		entries = append(entries, s.CleanupExpired(ctx)...)
	} else {
		logger.WithError(err).Error("Backup step failed")

		entries = append(entries, Entry{
			Step:    StepBackup,
			Message: "Backup run failed",
			Err:     err,
		})
	}

	s.persistReport(ctx, startedAt, entries)

	if err != nil {
		return Result{}, err
	}

	var deleted, failures int
	for _, entry := range entries {
		switch {
		case entry.Failed():
			failures++
		case entry.Step == StepCleanup:
			deleted++
		}
	}

	return Result{
		StatusCode: 200,
		Summary:    fmt.Sprintf("Backup run complete, %d snapshots created", created),
		Created:    created,
		Deleted:    deleted,
		Failures:   failures,
	}, nil
}

// CreateBackups snapshots every EBS-backed volume attached to instances
// carrying the backup tag. Failures creating or tagging an individual
// snapshot become failure entries and never abort the remaining
// volumes or instances. The returned error is reserved for the instance
// discovery query itself.
func (s *BackupService) CreateBackups(ctx context.Context) ([]Entry, int, error) {
	logger := appcontext.LoggerFromContext(s.logger, ctx)

	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("tag:" + s.config.TagKey),
				Values: []string{s.config.TagValue},
			},
		},
	}

	var instances []ec2types.Instance

	paginator := ec2.NewDescribeInstancesPaginator(s.compute, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, 0, errors.Wrap(err, "unable to describe instances")
		}

		for _, reservation := range page.Reservations {
			instances = append(instances, reservation.Instances...)
		}
	}

	if len(instances) == 0 {
		logger.WithFields(logrus.Fields{
			"tag_key":   s.config.TagKey,
			"tag_value": s.config.TagValue,
		}).Info("No instances matched the backup tag")

		return []Entry{{
			Step:    StepBackup,
			Message: fmt.Sprintf("No instances with tag %s=%s found", s.config.TagKey, s.config.TagValue),
		}}, 0, nil
	}

	var entries []Entry
	var created int

	for _, instance := range instances {
		instanceId := aws.ToString(instance.InstanceId)

		if instance.State != nil && instance.State.Name == ec2types.InstanceStateNameTerminated {
			logger.WithField("instance_id", instanceId).Debug("Skipping terminated instance")
			continue
		}

		for _, mapping := range instance.BlockDeviceMappings {
			if mapping.Ebs == nil || mapping.Ebs.VolumeId == nil {
				// instance-store devices have nothing to snapshot
				continue
			}

			entry := s.backupVolume(ctx, instanceId, aws.ToString(mapping.Ebs.VolumeId))
			if !entry.Failed() {
				created++
			}

			entries = append(entries, entry)
		}
	}

	return entries, created, nil
}

func (s *BackupService) backupVolume(ctx context.Context, instanceId, volumeId string) Entry {
	ctx = appcontext.WithVolumeId(appcontext.WithInstanceId(ctx, instanceId), volumeId)
	logger := appcontext.LoggerFromContext(s.logger, ctx)

	snap, err := s.compute.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(volumeId),
		Description: aws.String(snapshotDescription(instanceId, volumeId)),
	})
	if err != nil {
		logger.WithError(err).Error("Unable to create snapshot")

		return Entry{
			Step:       StepBackup,
			InstanceId: instanceId,
			VolumeId:   volumeId,
			Message:    fmt.Sprintf("Failed to create snapshot for %s-%s", instanceId, volumeId),
			Err:        err,
		}
	}

	snapshotId := aws.ToString(snap.SnapshotId)

	_, err = s.compute.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{snapshotId},
		Tags: []ec2types.Tag{
			{Key: aws.String(TagName), Value: aws.String(snapshotName(instanceId, volumeId))},
			{Key: aws.String(TagSourceInstance), Value: aws.String(instanceId)},
			{Key: aws.String(TagSourceVolume), Value: aws.String(volumeId)},
			{Key: aws.String(TagCreatedBy), Value: aws.String(CreatedByValue)},
			{Key: aws.String(TagCreatedOn), Value: aws.String(FormatDate(s.now()))},
		},
	})
	if err != nil {
		logger.WithError(err).WithField("snapshot_id", snapshotId).Error("Unable to tag snapshot")

		return Entry{
			Step:       StepBackup,
			InstanceId: instanceId,
			VolumeId:   volumeId,
			SnapshotId: snapshotId,
			Message:    fmt.Sprintf("Failed to tag snapshot %s for %s-%s", snapshotId, instanceId, volumeId),
			Err:        err,
		}
	}

	logger.WithField("snapshot_id", snapshotId).Info("Created snapshot")

	return Entry{
		Step:       StepBackup,
		InstanceId: instanceId,
		VolumeId:   volumeId,
		SnapshotId: snapshotId,
		Message:    fmt.Sprintf("Created snapshot %s for %s-%s", snapshotId, instanceId, volumeId),
	}
}

// CleanupExpired deletes completed snapshots carrying this job's
// attribution tag whose CreatedOn date is strictly before the retention
// cutoff. A failure of the listing query is recorded as a cleanup-level
// entry and whatever has been swept so far is returned; it never aborts
// the run.
func (s *BackupService) CleanupExpired(ctx context.Context) []Entry {
	logger := appcontext.LoggerFromContext(s.logger, ctx)

	cutoff := s.cutoffDate()
	logger.WithField("cutoff", FormatDate(cutoff)).Debug("Sweeping expired snapshots")

	input := &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("tag:" + TagCreatedBy),
				Values: []string{CreatedByValue},
			},
			{
				Name:   aws.String("status"),
				Values: []string{string(ec2types.SnapshotStateCompleted)},
			},
		},
	}

	var entries []Entry

	paginator := ec2.NewDescribeSnapshotsPaginator(s.compute, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			logger.WithError(err).Error("Unable to list snapshots for cleanup")

			return append(entries, Entry{
				Step:    StepCleanup,
				Message: "Failed to list snapshots for cleanup",
				Err:     err,
			})
		}

		for _, snapshot := range page.Snapshots {
			if entry, swept := s.sweepSnapshot(ctx, snapshot, cutoff); swept {
				entries = append(entries, entry)
			}
		}
	}

	return entries
}

// cutoffDate is today minus the retention window, at day granularity.
func (s *BackupService) cutoffDate() time.Time {
	t := s.now().UTC().AddDate(0, 0, -s.config.RetentionDays)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *BackupService) sweepSnapshot(ctx context.Context, snapshot ec2types.Snapshot, cutoff time.Time) (Entry, bool) {
	snapshotId := aws.ToString(snapshot.SnapshotId)

	ctx = appcontext.WithSnapshotId(ctx, snapshotId)
	logger := appcontext.LoggerFromContext(s.logger, ctx)

	value, ok := findTag(snapshot.Tags, TagCreatedOn)
	if !ok {
		// a snapshot whose creation date cannot be determined is never deleted
		logger.Warn("Snapshot has no creation date tag, leaving it alone")
		return Entry{}, false
	}

	createdOn, err := ParseDate(value)
	if err != nil {
		logger.WithError(err).Warn("Snapshot has a malformed creation date tag, leaving it alone")
		return Entry{}, false
	}

	// strictly before: a snapshot created exactly on the cutoff date is kept
	if !createdOn.Before(cutoff) {
		return Entry{}, false
	}

	if _, err := s.compute.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{SnapshotId: snapshot.SnapshotId}); err != nil {
		logger.WithError(err).Error("Unable to delete expired snapshot")

		return Entry{
			Step:       StepCleanup,
			SnapshotId: snapshotId,
			Message:    fmt.Sprintf("Failed to delete expired snapshot %s", snapshotId),
			Err:        err,
		}, true
	}

	logger.WithField("created_on", value).Info("Deleted expired snapshot")

	return Entry{
		Step:       StepCleanup,
		SnapshotId: snapshotId,
		Message:    fmt.Sprintf("Deleted expired snapshot %s (created %s)", snapshotId, value),
	}, true
}

func (s *BackupService) persistReport(ctx context.Context, startedAt time.Time, entries []Entry) {
	logger := appcontext.LoggerFromContext(s.logger, ctx)

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.Line())
	}

	key, err := s.reports.Save(ctx, startedAt, lines)
	if err != nil {
		// the report is best effort: its failure must never mask the
		// backup/cleanup outcome
		logger.WithError(err).Error("Unable to persist run report")
		return
	}

	logger.WithField("report_key", key).Info("Persisted run report")
}

func findTag(tags []ec2types.Tag, key string) (string, bool) {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == key {
			return aws.ToString(tag.Value), true
		}
	}

	return "", false
}
