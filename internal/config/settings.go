package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STUDYHELPER"

// Settings holds everything that differs between deployments. Tunables that do
// not are constants in environmentVariables.go.
type Settings struct {
	Client ClientSettings `mapstructure:"client" yaml:"client"`
	Server ServerSettings `mapstructure:"server" yaml:"server"`
	Redis  RedisSettings  `mapstructure:"redis" yaml:"redis"`
	Qdrant QdrantSettings `mapstructure:"qdrant" yaml:"qdrant"`
	LLM    LLMSettings    `mapstructure:"llm" yaml:"llm"`
	Log    LogSettings    `mapstructure:"log" yaml:"log"`
}

type ClientSettings struct {
	UserID        string `mapstructure:"user_id" yaml:"user_id"`
	Theme         string `mapstructure:"theme" yaml:"theme"`
	UploadURL     string `mapstructure:"upload_url" yaml:"upload_url"`
	DocumentsURL  string `mapstructure:"documents_url" yaml:"documents_url"`
	ChatURL       string `mapstructure:"chat_url" yaml:"chat_url"`
	StrictCatalog bool   `mapstructure:"strict_catalog" yaml:"strict_catalog"`
}

type ServerSettings struct {
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	PublicBaseURL string `mapstructure:"public_base_url" yaml:"public_base_url"`
	BlobRoot      string `mapstructure:"blob_root" yaml:"blob_root"`
	AuthToken     string `mapstructure:"auth_token" yaml:"auth_token"`
	RateLimit     bool   `mapstructure:"rate_limit" yaml:"rate_limit"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
}

type QdrantSettings struct {
	Host   string `mapstructure:"host" yaml:"host"`
	Port   int    `mapstructure:"port" yaml:"port"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

type LLMSettings struct {
	Provider       string `mapstructure:"provider" yaml:"provider"`
	GoogleAPIKey   string `mapstructure:"google_api_key" yaml:"google_api_key"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	GenerateModel  string `mapstructure:"generate_model" yaml:"generate_model"`
	EmbeddingModel string `mapstructure:"embedding_model" yaml:"embedding_model"`
}

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultSettings points the client at a local `studyhelper serve`.
func DefaultSettings() Settings {
	return Settings{
		Client: ClientSettings{
			Theme:        "dark",
			UploadURL:    "http://localhost:3000/uploads",
			DocumentsURL: "http://localhost:3000/documents",
			ChatURL:      "http://localhost:3000/chat",
		},
		Server: ServerSettings{
			ListenAddr:    ":3000",
			PublicBaseURL: "http://localhost:3000",
			BlobRoot:      "study_data",
			RateLimit:     true,
		},
		Redis: RedisSettings{
			Addr: "127.0.0.1:6379",
		},
		Qdrant: QdrantSettings{
			Host: "localhost",
			Port: 6334,
		},
		LLM: LLMSettings{
			Provider:       ProviderGemini,
			GenerateModel:  "gemini-2.5-flash-lite",
			EmbeddingModel: "gemini-embedding-001",
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// Load reads settings from the YAML file at path (optional) and STUDYHELPER_*
// environment variables, e.g. STUDYHELPER_CLIENT_USER_ID.
func Load(path string) (Settings, error) {
	cfg := DefaultSettings()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Settings{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Client.UploadURL = strings.TrimRight(cfg.Client.UploadURL, "/")
	cfg.Server.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/")
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, cfg Settings) {
	v.SetDefault("client.user_id", cfg.Client.UserID)
	v.SetDefault("client.theme", cfg.Client.Theme)
	v.SetDefault("client.upload_url", cfg.Client.UploadURL)
	v.SetDefault("client.documents_url", cfg.Client.DocumentsURL)
	v.SetDefault("client.chat_url", cfg.Client.ChatURL)
	v.SetDefault("client.strict_catalog", cfg.Client.StrictCatalog)
	v.SetDefault("server.listen_addr", cfg.Server.ListenAddr)
	v.SetDefault("server.public_base_url", cfg.Server.PublicBaseURL)
	v.SetDefault("server.blob_root", cfg.Server.BlobRoot)
	v.SetDefault("server.auth_token", cfg.Server.AuthToken)
	v.SetDefault("server.rate_limit", cfg.Server.RateLimit)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("qdrant.host", cfg.Qdrant.Host)
	v.SetDefault("qdrant.port", cfg.Qdrant.Port)
	v.SetDefault("qdrant.api_key", cfg.Qdrant.APIKey)
	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.google_api_key", cfg.LLM.GoogleAPIKey)
	v.SetDefault("llm.openai_api_key", cfg.LLM.OpenAIAPIKey)
	v.SetDefault("llm.generate_model", cfg.LLM.GenerateModel)
	v.SetDefault("llm.embedding_model", cfg.LLM.EmbeddingModel)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
}

// WriteDefault writes a starter config file. It refuses to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	data, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks the client side needs.
func (c ClientSettings) Validate() error {
	var missing []string
	if c.UploadURL == "" {
		missing = append(missing, "client.upload_url")
	}
	if c.DocumentsURL == "" {
		missing = append(missing, "client.documents_url")
	}
	if c.ChatURL == "" {
		missing = append(missing, "client.chat_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing client settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
