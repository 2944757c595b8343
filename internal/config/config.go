package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/robfig/cron/v3"
)

// DefaultReapSchedule runs the reaper every five minutes.
const DefaultReapSchedule = "*/5 * * * *"

// ScheduleParser accepts standard 5-field cron expressions.
var ScheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func Load() (*Config, error) {
	dbPath := os.Getenv("RECONMEM_DB")
	if dbPath == "" {
		dbPath = "reconmem.db"
	}

	schedule := os.Getenv("RECONMEM_REAP_SCHEDULE")
	if schedule == "" {
		schedule = DefaultReapSchedule
	}
	if _, err := ScheduleParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("RECONMEM_REAP_SCHEDULE: invalid cron schedule: %w", err)
	}

	var ttl int64
	if v := os.Getenv("RECONMEM_DEFAULT_TTL"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("RECONMEM_DEFAULT_TTL: %q is not a number of seconds", v)
		}
		ttl = parsed
	}

	return &Config{
		DBPath:       dbPath,
		Debug:        os.Getenv("RECONMEM_DEBUG") == "true",
		ReapSchedule: schedule,
		RulesFile:    os.Getenv("RECONMEM_RULES_FILE"),
		DefaultTTL:   ttl,
		Storage:      loadStorageConfig(),
	}, nil
}

func loadStorageConfig() StorageConfig {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "minio:9000"
	}

	bucket := os.Getenv("MINIO_IMAGE_BUCKET")
	if bucket == "" {
		bucket = "reconmem-images"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")

	return StorageConfig{
		Enabled:     accessKey != "" && secretKey != "",
		Endpoint:    endpoint,
		AccessKey:   accessKey,
		SecretKey:   secretKey,
		UseSSL:      os.Getenv("MINIO_USE_SSL") == "true",
		ImageBucket: bucket,
	}
}
