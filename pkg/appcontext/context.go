package appcontext

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextId int

const (
	runIdKeyId contextId = iota
	instanceIdKeyId
	volumeIdKeyId
	snapshotIdKeyId
	requestIdKeyId
)

func WithRunId(ctx context.Context, runId string) context.Context {
	return context.WithValue(ctx, runIdKeyId, runId)
}

func WithInstanceId(ctx context.Context, instanceId string) context.Context {
	return context.WithValue(ctx, instanceIdKeyId, instanceId)
}

func WithVolumeId(ctx context.Context, volumeId string) context.Context {
	return context.WithValue(ctx, volumeIdKeyId, volumeId)
}

func WithSnapshotId(ctx context.Context, snapshotId string) context.Context {
	return context.WithValue(ctx, snapshotIdKeyId, snapshotId)
}

func WithRequestId(ctx context.Context, requestId string) context.Context {
	return context.WithValue(ctx, requestIdKeyId, requestId)
}

func LoggerFromContext(logger logrus.FieldLogger, ctx context.Context) logrus.FieldLogger {
	if ctx == nil {
		return logger
	}

	result := logger

	if ctxRunId, ok := ctx.Value(runIdKeyId).(string); ok && ctxRunId != "" {
		result = result.WithField("run_id", ctxRunId)
	}

	if ctxInstanceId, ok := ctx.Value(instanceIdKeyId).(string); ok && ctxInstanceId != "" {
		result = result.WithField("instance_id", ctxInstanceId)
	}

	if ctxVolumeId, ok := ctx.Value(volumeIdKeyId).(string); ok && ctxVolumeId != "" {
		result = result.WithField("volume_id", ctxVolumeId)
	}

	if ctxSnapshotId, ok := ctx.Value(snapshotIdKeyId).(string); ok && ctxSnapshotId != "" {
		result = result.WithField("snapshot_id", ctxSnapshotId)
	}

	if ctxRequestId, ok := ctx.Value(requestIdKeyId).(string); ok && ctxRequestId != "" {
		result = result.WithField("request_id", ctxRequestId)
	}

	return result
}
