package config

type Config struct {
	DBPath       string
	Debug        bool
	ReapSchedule string
	RulesFile    string
	// DefaultTTL in seconds; zero means inserts do not expire.
	DefaultTTL int64
	Storage    StorageConfig
}

type StorageConfig struct {
	Enabled     bool
	Endpoint    string
	AccessKey   string
	SecretKey   string
	UseSSL      bool
	ImageBucket string
}
