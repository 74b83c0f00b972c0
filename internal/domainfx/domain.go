package domainfx

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/opskitchen/snapkeeper/internal/awsfx"
	"github.com/opskitchen/snapkeeper/pkg/domain"
	"github.com/opskitchen/snapkeeper/pkg/report"
)

const (
	ConfigBackupTagKey        = "backup.tag_key"
	ConfigBackupTagValue      = "backup.tag_value"
	ConfigBackupRetentionDays = "backup.retention_days"

	ConfigReportBucket = "report.bucket"
	ConfigReportPrefix = "report.prefix"

	ConfigScheduleCronSpec = "schedule.cron_spec"
)

func NewCron() *cron.Cron {
	return cron.New()
}

func BackupConfigProvider(v *viper.Viper) (domain.Config, error) {
	config := domain.Config{
		TagKey:        v.GetString(ConfigBackupTagKey),
		TagValue:      v.GetString(ConfigBackupTagValue),
		RetentionDays: v.GetInt(ConfigBackupRetentionDays),
	}

	if config.RetentionDays <= 0 {
		return domain.Config{}, errors.New("backup.retention_days (RETENTION_DAYS) must be a positive number of days")
	}

	return config, nil
}

func ReportStore(v *viper.Viper, clients *awsfx.Clients) (domain.ReportStore, error) {
	bucket := v.GetString(ConfigReportBucket)
	if bucket == "" {
		return nil, errors.New("report.bucket (LOG_BUCKET) is required")
	}

	return report.NewS3Store(clients.S3, bucket, v.GetString(ConfigReportPrefix)), nil
}

func BackupService(
	logger *logrus.Logger,
	clients *awsfx.Clients,
	reports domain.ReportStore,
	config domain.Config,
) *domain.BackupService {
	return domain.NewBackupService(logger, clients.EC2, reports, config)
}

func RunStatusStore() *domain.RunStatusStore {
	return domain.NewRunStatusStore()
}

func RunManager(
	logger *logrus.Logger,
	service *domain.BackupService,
	status *domain.RunStatusStore,
	cron *cron.Cron,
	v *viper.Viper,
) *domain.RunManager {
	return domain.NewRunManager(logger, service, status, cron, v.GetString(ConfigScheduleCronSpec))
}

func RunBackup(lc fx.Lifecycle, sh fx.Shutdowner, logger *logrus.Logger, manager *domain.RunManager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := manager.Run(context.Background()); err != nil {
					// a non-zero exit is how the invoking scheduler
					// observes a failed run
					logger.WithError(err).Fatal("Backup run failed")
				}

				if !manager.Daemon() {
					if err := sh.Shutdown(); err != nil {
						logger.WithError(err).Error("Unable to shut down")
					}
				}
			}()
			return nil
		},
	})
}
