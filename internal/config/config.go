package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `yaml:"server" toml:"server"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"` // リッスンするホスト（空なら全インターフェース）
	Port int    `yaml:"port" toml:"port"` // リッスンするポート番号（0ならエフェメラル）

	Root            string `yaml:"root" toml:"root"`                         // ドキュメントルート
	DefaultDocument string `yaml:"default_document" toml:"default_document"` // "/" の置き換え先

	// タイムアウト設定（0は無制限）
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text または json
}

// デフォルト値
const (
	DefaultPort            = 8000
	DefaultRoot            = "."
	DefaultDocumentPath    = "/src/index.html"
	DefaultShutdownTimeout = 5 * time.Second
)

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            DefaultPort,
			Root:            DefaultRoot,
			DefaultDocument: DefaultDocumentPath,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load は設定を読み込んで検証する
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Read は検証せずに設定を読み込む
// .env → 設定ファイル (CONFIG_FILE) → 環境変数 の順に上書きする
// 呼び出し側でさらに上書きしてから Validate する場合に使う
func Read() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsIntOrDefault("PORT", cfg.Server.Port)
	cfg.Server.Root = getEnvOrDefault("SERVE_ROOT", cfg.Server.Root)
	cfg.Server.DefaultDocument = getEnvOrDefault("DEFAULT_DOCUMENT", cfg.Server.DefaultDocument)
	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("LOG_FORMAT", cfg.Log.Format)

	return cfg, nil
}

// LoadFile は設定ファイルを cfg の上にデコードする
// 拡張子で形式を判定する (.yaml/.yml, .toml)
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("YAMLの解析に失敗 (%s): %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("TOMLの解析に失敗 (%s): %w", path, err)
		}
	default:
		return fmt.Errorf("未対応の設定ファイル形式: %s", path)
	}
	return nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	info, err := os.Stat(c.Server.Root)
	if err != nil {
		return fmt.Errorf("ドキュメントルートにアクセスできません: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("ドキュメントルートがディレクトリではありません: %s", c.Server.Root)
	}

	if !strings.HasPrefix(c.Server.DefaultDocument, "/") {
		return fmt.Errorf("デフォルトドキュメントは / で始まる必要があります: %q", c.Server.DefaultDocument)
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 ||
		c.Server.IdleTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New("タイムアウトに負の値は指定できません")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("無効なログ形式: %q", c.Log.Format)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DisplayURL は起動メッセージ用のURLを返す
func (c *Config) DisplayURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

// loadDotEnv は .env ファイルがあれば環境変数に読み込む
// 既に設定されている環境変数は上書きしない
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf(".envの読み込みに失敗: %w", err)
	}
	return nil
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
