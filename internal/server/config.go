package server

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"taskmanager/internal/domain/errors"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	BlobLocal = "local"
	BlobGCS   = "gcs"
)

type Config struct {
	Addr               string        `json:"addr" yaml:"addr"`
	Port               int           `json:"port" yaml:"port"`
	DBStr              string        `json:"dbStr" yaml:"dbStr"`
	MigratePath        string        `json:"migratePath" yaml:"migratePath"`
	Storage            string        `json:"storage" yaml:"storage"`
	SQLitePath         string        `json:"sqlitePath" yaml:"sqlitePath"`
	BlobDriver         string        `json:"blobDriver" yaml:"blobDriver"`
	UploadDir          string        `json:"uploadDir" yaml:"uploadDir"`
	GCSBucket          string        `json:"gcsBucket" yaml:"gcsBucket"`
	GCSCredentialsFile string        `json:"gcsCredentialsFile" yaml:"gcsCredentialsFile"`
	JWTSecret          string        `json:"jwtSecret" yaml:"jwtSecret"`
	JWTTTL             time.Duration `json:"jwtTTL" yaml:"jwtTTL"`
	CORSOrigins        []string      `json:"corsOrigins" yaml:"corsOrigins"`
	MaxUploadSize      int64         `json:"maxUploadSize" yaml:"maxUploadSize"`
	Seed               bool          `json:"seed" yaml:"seed"`
}

const (
	defaultAddr          = "0.0.0.0"
	defaultPort          = 8080
	defaultDBStr         = "postgresql://shouldbeinVaultuser:shouldbeinVaultpassword@db:5432/tasks?sslmode=disable"
	defaultMigratePath   = "migrations"
	defaultStorage       = StoragePostgres
	defaultSQLitePath    = "data/tasks.db"
	defaultBlobDriver    = BlobLocal
	defaultUploadDir     = "uploads"
	defaultJWTSecret     = "shouldbeinVaultsecret"
	defaultJWTTTL        = 24 * time.Hour
	defaultMaxUploadSize = 10 << 20
)

var (
	addr        = flag.String("addr", defaultAddr, "адрес сервера (по умолчанию 0.0.0.0)")
	port        = flag.Int("port", defaultPort, "порт сервера (по умолчанию 8080)")
	dbstr       = flag.String("dbstr", defaultDBStr, "строка подключения к БД (по умолчанию стандартная)")
	dbDsn       = flag.String("dbdsn", "", "DSN для подключения к базе данных (приоритетнее dbstr)")
	migratePath = flag.String("migratepath", defaultMigratePath, "путь к папке с миграциями")
	storageKind = flag.String("storage", defaultStorage, "тип хранилища: postgres, sqlite или memory")
	sqlitePath  = flag.String("sqlite", defaultSQLitePath, "путь к файлу базы SQLite")
	uploadDir   = flag.String("uploads", defaultUploadDir, "каталог для загруженных файлов")
	seed        = flag.Bool("seed", false, "заполнить пустую базу демонстрационными данными")
	configFile  = flag.String("c", "", "путь к файлу конфигурации JSON или YAML")
	parsed      = false
)

// DefaultConfig возвращает конфигурацию без учёта окружения и флагов.
func DefaultConfig() *Config {
	return &Config{
		Addr:          defaultAddr,
		Port:          defaultPort,
		DBStr:         defaultDBStr,
		MigratePath:   defaultMigratePath,
		Storage:       defaultStorage,
		SQLitePath:    defaultSQLitePath,
		BlobDriver:    defaultBlobDriver,
		UploadDir:     defaultUploadDir,
		JWTSecret:     defaultJWTSecret,
		JWTTTL:        defaultJWTTTL,
		CORSOrigins:   []string{"*"},
		MaxUploadSize: defaultMaxUploadSize,
	}
}

func ReadConfig() *Config {
	if !parsed {
		flag.Parse()
		parsed = true
	}

	return applyFlagOverrides(LoadConfig(*configFile))
}

// LoadConfig собирает конфигурацию из значений по умолчанию, файла,
// .env и переменных окружения. Пустой path означает переменную CONFIG.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()

	if fileConfig := loadFileConfig(path); fileConfig != nil {
		cfg = mergeConfig(cfg, fileConfig)
	}

	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: файл .env не найден или не прочитан")
	}

	return applyEnvOverrides(cfg)
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Addr, c.Port)
}

func loadFileConfig(configPath string) *Config {
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}

	if configPath == "" {
		fmt.Printf("Файл конфигурации: не указан путь к файлу\n")
		return nil
	}

	fmt.Printf("Загрузка конфигурации из: %s\n", configPath)
	cfg, err := parseConfigFile(configPath)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
		return nil
	}

	fmt.Printf("Конфигурация успешно загружена из: %s\n", configPath)
	return cfg
}

func parseConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", errors.ErrConfigFileReadFailed, path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrConfigParseFailed, err)
	}
	return &cfg, nil
}

// mergeConfig переносит в base только заданные в файле поля.
func mergeConfig(base, file *Config) *Config {
	if file.Addr != "" {
		base.Addr = file.Addr
	}
	if file.Port != 0 {
		base.Port = file.Port
	}
	if file.DBStr != "" {
		base.DBStr = file.DBStr
	}
	if file.MigratePath != "" {
		base.MigratePath = file.MigratePath
	}
	if file.Storage != "" {
		base.Storage = file.Storage
	}
	if file.SQLitePath != "" {
		base.SQLitePath = file.SQLitePath
	}
	if file.BlobDriver != "" {
		base.BlobDriver = file.BlobDriver
	}
	if file.UploadDir != "" {
		base.UploadDir = file.UploadDir
	}
	if file.GCSBucket != "" {
		base.GCSBucket = file.GCSBucket
	}
	if file.GCSCredentialsFile != "" {
		base.GCSCredentialsFile = file.GCSCredentialsFile
	}
	if file.JWTSecret != "" {
		base.JWTSecret = file.JWTSecret
	}
	if file.JWTTTL != 0 {
		base.JWTTTL = file.JWTTTL
	}
	if len(file.CORSOrigins) > 0 {
		base.CORSOrigins = file.CORSOrigins
	}
	if file.MaxUploadSize != 0 {
		base.MaxUploadSize = file.MaxUploadSize
	}
	base.Seed = base.Seed || file.Seed
	return base
}

func applyEnvOverrides(cfg *Config) *Config {
	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err != nil {
			fmt.Printf("Warning: %s в переменной окружения PORT: %s\n", errors.ErrConfigInvalidFormat.Error(), port)
		} else if p < 1 || p > 65535 {
			fmt.Printf("Warning: %s - порт должен быть от 1 до 65535: %d\n", errors.ErrConfigInvalidFormat.Error(), p)
		} else {
			cfg.Port = p
		}
	}
	if dbStr := os.Getenv("DB_STR"); dbStr != "" {
		cfg.DBStr = dbStr
	}
	if migratePath := os.Getenv("MIGRATE_PATH"); migratePath != "" {
		cfg.MigratePath = migratePath
	}
	if storage := os.Getenv("STORAGE"); storage != "" {
		cfg.Storage = storage
	}
	if sqlitePath := os.Getenv("SQLITE_PATH"); sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	if blobDriver := os.Getenv("BLOB_DRIVER"); blobDriver != "" {
		cfg.BlobDriver = blobDriver
	}
	if uploadDir := os.Getenv("UPLOAD_DIR"); uploadDir != "" {
		cfg.UploadDir = uploadDir
	}
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		cfg.GCSBucket = bucket
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		cfg.GCSCredentialsFile = creds
	}
	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		cfg.JWTSecret = secret
	}
	if ttl := os.Getenv("JWT_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err != nil {
			fmt.Printf("Warning: %s в переменной окружения JWT_TTL: %s\n", errors.ErrConfigInvalidFormat.Error(), ttl)
		} else {
			cfg.JWTTTL = d
		}
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	if size := os.Getenv("MAX_UPLOAD_SIZE"); size != "" {
		if n, err := strconv.ParseInt(size, 10, 64); err != nil || n <= 0 {
			fmt.Printf("Warning: %s в переменной окружения MAX_UPLOAD_SIZE: %s\n", errors.ErrConfigInvalidFormat.Error(), size)
		} else {
			cfg.MaxUploadSize = n
		}
	}
	if os.Getenv("SEED") == "true" {
		cfg.Seed = true
	}

	if cfg.DBStr == defaultDBStr {
		dbUser := os.Getenv("DB_USER")
		dbPassword := os.Getenv("DB_PASSWORD")
		dbName := os.Getenv("DB_NAME")
		dbHost := os.Getenv("DB_HOST")
		dbPort := os.Getenv("DB_PORT")
		if dbUser != "" && dbPassword != "" && dbName != "" && dbHost != "" && dbPort != "" {
			cfg.DBStr = fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, dbName)
		}
	}

	return cfg
}

// applyFlagOverrides применяет только явно заданные флаги.
func applyFlagOverrides(cfg *Config) *Config {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "port":
			cfg.Port = *port
		case "dbstr":
			if *dbDsn == "" {
				cfg.DBStr = *dbstr
			}
		case "dbdsn":
			cfg.DBStr = *dbDsn
		case "migratepath":
			cfg.MigratePath = *migratePath
		case "storage":
			cfg.Storage = *storageKind
		case "sqlite":
			cfg.SQLitePath = *sqlitePath
		case "uploads":
			cfg.UploadDir = *uploadDir
		case "seed":
			cfg.Seed = *seed
		}
	})
	return cfg
}
