package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/medsched/sihrunner/internal/sihfetch"
)

// Config aggregates configuration for the application.
// Each section is owned by the component it configures.
type Config struct {
	FTP         FTPConfig         `mapstructure:"ftp"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Warehouse   WarehouseConfig   `mapstructure:"warehouse"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Serve       ServeConfig       `mapstructure:"serve"`
}

// FTPConfig configures the DATASUS archive connection.
type FTPConfig struct {
	Host      string `mapstructure:"host"`
	RemoteDir string `mapstructure:"remote_dir"`
	DataDir   string `mapstructure:"data_dir"`
	Workers   int    `mapstructure:"workers"`
}

// StorageConfig configures the parquet staging path.
type StorageConfig struct {
	ScratchDir          string `mapstructure:"scratch_dir"`
	BucketLocation      string `mapstructure:"bucket_location"`
	BucketStorageClass  string `mapstructure:"bucket_storage_class"`
	DuckDBMemoryLimitMB int64  `mapstructure:"duckdb_memory_limit_mb"`
}

// WarehouseConfig configures the BigQuery load step.
type WarehouseConfig struct {
	IfExists string `mapstructure:"if_exists"`
}

// CredentialsConfig selects the service-account credential: explicit
// material (a file path or an inline JSON document) or a Secret Manager
// reference used when the material is empty.
type CredentialsConfig struct {
	SAJSON        string `mapstructure:"sa_json"`
	SecretProject string `mapstructure:"secret_project"`
	SecretName    string `mapstructure:"secret_name"`
}

// ServeConfig configures the HTTP load endpoint.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		FTP: FTPConfig{
			Host:      sihfetch.DefaultHost,
			RemoteDir: sihfetch.DefaultRemoteDir,
			DataDir:   "./data",
			Workers:   8,
		},
		Storage: StorageConfig{
			ScratchDir:         "/tmp/parquet_files",
			BucketLocation:     "US",
			BucketStorageClass: "STANDARD",
		},
		Warehouse: WarehouseConfig{
			IfExists: "append",
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "SIHRUNNER" and the dot character
// in keys is replaced by an underscore. For example, "ftp.host" becomes
// "SIHRUNNER_FTP_HOST".
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("SIHRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	// Short aliases for the credential settings.
	_ = v.BindEnv("credentials.sa_json", "SIHRUNNER_CREDENTIALS_SA_JSON", "SIHRUNNER_SA_JSON")
	_ = v.BindEnv("credentials.secret_project", "SIHRUNNER_CREDENTIALS_SECRET_PROJECT", "SIHRUNNER_SECRET_PROJECT")
	_ = v.BindEnv("credentials.secret_name", "SIHRUNNER_CREDENTIALS_SECRET_NAME", "SIHRUNNER_SECRET_NAME")
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
