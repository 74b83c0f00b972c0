package domain

import (
	"fmt"
	"time"
)

// Tags applied to every snapshot this job creates. CreatedBy scopes the
// cleanup query, so snapshots made by anything else are never considered
// for deletion. CreatedOn is the authoritative creation date for the
// retention decision: day granularity, stored explicitly instead of
// relying on the provider-reported start time.
const (
	TagName           = "Name"
	TagSourceInstance = "SourceInstance"
	TagSourceVolume   = "SourceVolume"
	TagCreatedBy      = "CreatedBy"
	TagCreatedOn      = "CreatedOn"

	CreatedByValue = "snapkeeper"
)

const dateLayout = "2006-01-02"

// FormatDate renders a time as the ISO calendar date stored in the
// CreatedOn tag.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// ParseDate parses a CreatedOn tag value. The resulting time is midnight
// UTC of that calendar day.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

func snapshotName(instanceId, volumeId string) string {
	return fmt.Sprintf("%s-%s", instanceId, volumeId)
}

func snapshotDescription(instanceId, volumeId string) string {
	return fmt.Sprintf("Backup of %s, volume %s", instanceId, volumeId)
}
