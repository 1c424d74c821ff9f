// Package config loads process configuration from the environment, the same
// way across every codegraph binary.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Valkey   ValkeyConfig
	Bedrock  BedrockConfig
	Indexing IndexingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
}

type BedrockConfig struct {
	Region  string
	ModelID string
}

// IndexingConfig carries the pipeline options recognized by spec §4.7.
// MaxFilesizeBytes is stored in raw bytes (not megabytes) so a boundary as
// fine as spec §8.5's "100 bytes" can be expressed exactly; Load still reads
// MAX_INDEXING_FILE_SIZE as whole megabytes from the environment and
// converts once here.
type IndexingConfig struct {
	DirectorySkipPattern string
	MaxFilesizeBytes     int64
	IndexedExtensions    map[string]bool
	LanguageExtensions   map[string]string
	ChunkSize            int
	ChunkOverlap         int
	BatchSize            int
	MaxWorkers           int
	LockTTL              time.Duration
}

// DefaultDirectorySkipPattern mirrors the original implementation's default:
// dotfiles, dunder directories, and node_modules.
const DefaultDirectorySkipPattern = `^\..*|^__[A-Za-z]*__$|^node_modules$`

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "codegraph"),
			Password: getEnv("DB_PASSWORD", "codegraph"),
			Name:     getEnv("DB_NAME", "codegraph"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Valkey: ValkeyConfig{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
		},
		Bedrock: BedrockConfig{
			Region:  getEnv("BEDROCK_REGION", "us-east-1"),
			ModelID: getEnv("BEDROCK_MODEL_ID", "cohere.embed-english-v4"),
		},
		Indexing: IndexingConfig{
			DirectorySkipPattern: getEnv("DIRECTORY_SKIP_INDEXING_PATTERN", DefaultDirectorySkipPattern),
			MaxFilesizeBytes:     int64(getEnvInt("MAX_INDEXING_FILE_SIZE", 10)) * 1024 * 1024,
			IndexedExtensions:    defaultIndexedExtensions(),
			LanguageExtensions:   map[string]string{".py": "python"},
			ChunkSize:            getEnvInt("INDEXING_CHUNK_SIZE", 800),
			ChunkOverlap:         getEnvInt("INDEXING_CHUNK_OVERLAP", 80),
			BatchSize:            getEnvInt("INDEXING_BATCH_SIZE", 50),
			MaxWorkers:           getEnvInt("MAX_INDEXING_WORKERS", 16),
			LockTTL:              time.Duration(getEnvInt("INDEXING_LOCK_TTL_SECS", 120)) * time.Second,
		},
	}
	return cfg, nil
}

func defaultIndexedExtensions() map[string]bool {
	exts := []string{
		".txt", ".md",
		".py", ".cpp", ".c", ".hpp", ".h",
		".sh", ".zsh", ".bash",
		".js", ".jsx", ".ts", ".tsx",
		".rs", ".cs", ".java", ".go", ".r",
		".html", ".css", ".scss", ".sass",
		".php", ".rb",
		".conf", ".ini", ".json", ".yaml", ".yml", ".toml",
	}
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[e] = true
	}
	return m
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
