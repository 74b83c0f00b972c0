package domainfx

import (
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(NewCron),
	fx.Provide(BackupConfigProvider),
	fx.Provide(ReportStore),
	fx.Provide(BackupService),
	fx.Provide(RunStatusStore),
	fx.Provide(RunManager),
	fx.Invoke(RunBackup),
)
