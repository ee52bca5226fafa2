// Package config provides configuration management for iq.
// It loads settings from environment variables with the IQ_ prefix and
// provides sensible defaults for all configuration options. A .env file in
// the working directory is honoured when present.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration, assembled once at startup by
// LoadConfig and passed down read-only.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Security SecurityConfig
	Backup   BackupConfig
	Mirror   MirrorConfig
}

// ServerConfig controls the iq-web listen address.
type ServerConfig struct {
	Port int    // IQ_PORT, default 6363
	Host string // IQ_HOST, default 127.0.0.1
}

// StorageConfig locates the knowledge graph snapshot on disk.
type StorageConfig struct {
	DataPath  string // IQ_DATA_PATH, default ./data
	StoreFile string // IQ_STORE_FILE, default memory.jsonl
}

// StorePath returns the full path to the snapshot file.
func (s StorageConfig) StorePath() string {
	return filepath.Join(s.DataPath, s.StoreFile)
}

// SecurityConfig governs API authentication for iq-web.
type SecurityConfig struct {
	SecurityMode string // IQ_SECURITY_MODE: development or production, default development
	APIToken     string // IQ_API_TOKEN, bearer token required in production mode
}

// BackupConfig drives scheduled snapshot backups and their tiered retention.
type BackupConfig struct {
	BackupEnabled          bool   // IQ_BACKUP_ENABLED, default false
	BackupInterval         string // IQ_BACKUP_INTERVAL, duration string, default 24h
	BackupPath             string // IQ_BACKUP_PATH, default ./backups
	BackupVerify           bool   // IQ_BACKUP_VERIFY, default true
	BackupRetentionHourly  int    // IQ_BACKUP_RETENTION_HOURLY, default 24
	BackupRetentionDaily   int    // IQ_BACKUP_RETENTION_DAILY, default 7
	BackupRetentionWeekly  int    // IQ_BACKUP_RETENTION_WEEKLY, default 4
	BackupRetentionMonthly int    // IQ_BACKUP_RETENTION_MONTHLY, default 12
}

// MirrorConfig configures the optional one-way replica of the graph.
type MirrorConfig struct {
	Engine        string // IQ_MIRROR_ENGINE: none, sqlite, postgres or neo4j, default none
	SQLitePath    string // IQ_MIRROR_SQLITE_PATH, default ./data/mirror.db
	PostgresDSN   string // IQ_MIRROR_POSTGRES_DSN
	Neo4jURI      string // IQ_MIRROR_NEO4J_URI, default bolt://localhost:7687
	Neo4jUser     string // IQ_MIRROR_NEO4J_USER, default neo4j
	Neo4jPassword string // IQ_MIRROR_NEO4J_PASSWORD
}

// Enabled reports whether a mirror engine has been selected.
func (m MirrorConfig) Enabled() bool {
	return m.Engine != "" && m.Engine != "none"
}

// LoadConfig reads the IQ_-prefixed environment and fills in defaults for
// anything unset.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	var cfg Config

	cfg.Server.Port = envInt("IQ_PORT", 6363)
	cfg.Server.Host = envStr("IQ_HOST", "127.0.0.1")

	cfg.Storage.DataPath = envStr("IQ_DATA_PATH", "./data")
	cfg.Storage.StoreFile = envStr("IQ_STORE_FILE", "memory.jsonl")

	cfg.Security.SecurityMode = envStr("IQ_SECURITY_MODE", "development")
	cfg.Security.APIToken = envStr("IQ_API_TOKEN", "")

	cfg.Backup.BackupEnabled = envBool("IQ_BACKUP_ENABLED", false)
	cfg.Backup.BackupInterval = envStr("IQ_BACKUP_INTERVAL", "24h")
	cfg.Backup.BackupPath = envStr("IQ_BACKUP_PATH", "./backups")
	cfg.Backup.BackupVerify = envBool("IQ_BACKUP_VERIFY", true)
	cfg.Backup.BackupRetentionHourly = envInt("IQ_BACKUP_RETENTION_HOURLY", 24)
	cfg.Backup.BackupRetentionDaily = envInt("IQ_BACKUP_RETENTION_DAILY", 7)
	cfg.Backup.BackupRetentionWeekly = envInt("IQ_BACKUP_RETENTION_WEEKLY", 4)
	cfg.Backup.BackupRetentionMonthly = envInt("IQ_BACKUP_RETENTION_MONTHLY", 12)

	cfg.Mirror.Engine = envStr("IQ_MIRROR_ENGINE", "none")
	cfg.Mirror.SQLitePath = envStr("IQ_MIRROR_SQLITE_PATH", "./data/mirror.db")
	cfg.Mirror.PostgresDSN = envStr("IQ_MIRROR_POSTGRES_DSN", "")
	cfg.Mirror.Neo4jURI = envStr("IQ_MIRROR_NEO4J_URI", "bolt://localhost:7687")
	cfg.Mirror.Neo4jUser = envStr("IQ_MIRROR_NEO4J_USER", "neo4j")
	cfg.Mirror.Neo4jPassword = envStr("IQ_MIRROR_NEO4J_PASSWORD", "")

	return &cfg, nil
}

// envStr returns the value of key, or fallback when unset or empty.
func envStr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// envInt parses key as an integer, falling back when unset or malformed.
func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

// envBool understands true/1/yes and false/0/no in any casing; anything
// else, including unset, yields the fallback.
func envBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}
