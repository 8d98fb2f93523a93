package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/go-bert-japanese/internal/hub"
)

type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Hub       HubConfig       `mapstructure:"hub"`
	Server    ServerConfig    `mapstructure:"server"`
	LogLevel  string          `mapstructure:"log_level"`
}

type PathsConfig struct {
	// DictPath is "ipa" for the embedded IPA dictionary or a kagome dictionary zip.
	DictPath string `mapstructure:"dict_path"`
	// VocabPath is the vocab.txt to load. Empty selects the file that
	// `vocab download` writes for Hub.Repo under Hub.OutDir.
	VocabPath string `mapstructure:"vocab_path"`
}

type TokenizerConfig struct {
	AddSpecialTokens bool   `mapstructure:"add_special_tokens"`
	DecodePolicy     string `mapstructure:"decode_policy"`
	ReservedBelow    int    `mapstructure:"reserved_below"`
	CacheSize        int    `mapstructure:"cache_size"`
	// BatchWorkers bounds EncodeBatch parallelism; 0 means GOMAXPROCS.
	BatchWorkers int `mapstructure:"batch_workers"`
}

type HubConfig struct {
	Repo    string `mapstructure:"repo"`
	OutDir  string `mapstructure:"out_dir"`
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	Workers         int           `mapstructure:"workers"`
	MaxTextBytes    int           `mapstructure:"max_text_bytes"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			DictPath: "ipa",
		},
		Tokenizer: TokenizerConfig{
			AddSpecialTokens: true,
			DecodePolicy:     DecodePolicySpecial,
			ReservedBelow:    5,
			CacheSize:        4096,
		},
		Hub: HubConfig{
			Repo:    "cl-tohoku/bert-base-japanese-v2",
			OutDir:  "models",
			BaseURL: hub.DefaultBaseURL,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			MaxTextBytes:    16384,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		LogLevel: "info",
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"dict-path":               "paths.dict_path",
	"vocab-path":              "paths.vocab_path",
	"add-special-tokens":      "tokenizer.add_special_tokens",
	"decode-policy":           "tokenizer.decode_policy",
	"reserved-below":          "tokenizer.reserved_below",
	"cache-size":              "tokenizer.cache_size",
	"batch-workers":           "tokenizer.batch_workers",
	"hub-repo":                "hub.repo",
	"hub-out-dir":             "hub.out_dir",
	"hf-token":                "hub.token",
	"hub-base-url":            "hub.base_url",
	"server-listen-addr":      "server.listen_addr",
	"workers":                 "server.workers",
	"server-max-text-bytes":   "server.max_text_bytes",
	"server-request-timeout":  "server.request_timeout",
	"server-shutdown-timeout": "server.shutdown_timeout",
	"log-level":               "log_level",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("dict-path", defaults.Paths.DictPath, `Segmenter dictionary ("ipa" or path to a kagome dictionary zip)`)
	fs.String("vocab-path", defaults.Paths.VocabPath, "Path to WordPiece vocab.txt (default <hub-out-dir>/<hub-repo>/vocab.txt)")
	fs.Bool("add-special-tokens", defaults.Tokenizer.AddSpecialTokens, "Frame encodings with [CLS] and [SEP]")
	fs.String("decode-policy", defaults.Tokenizer.DecodePolicy, "Special-token skipping on decode (special|reserved)")
	fs.Int("reserved-below", defaults.Tokenizer.ReservedBelow, "Ids below this value are skipped by the reserved decode policy")
	fs.Int("cache-size", defaults.Tokenizer.CacheSize, "Word split cache entries (0 disables)")
	fs.Int("batch-workers", defaults.Tokenizer.BatchWorkers, "Goroutines used to encode a batch (0 = GOMAXPROCS)")
	fs.String("hub-repo", defaults.Hub.Repo, "Hugging Face repository id (org/name)")
	fs.String("hub-out-dir", defaults.Hub.OutDir, "Directory that receives downloaded vocabularies")
	fs.String("hf-token", defaults.Hub.Token, "Hugging Face access token")
	fs.String("hub-base-url", defaults.Hub.BaseURL, "Hugging Face endpoint")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent encode/decode requests")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Max request text size in bytes")
	fs.Duration("server-request-timeout", defaults.Server.RequestTimeout, "Per-request timeout")
	fs.Duration("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("BERTJP")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("hub.token", "BERTJP_HUB_TOKEN", "HF_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind token env vars: %w", err)
	}
	if err := v.BindEnv("hub.base_url", "BERTJP_HUB_BASE_URL", "HF_ENDPOINT"); err != nil {
		return Config{}, fmt.Errorf("bind endpoint env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("bertjp")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	policy, err := NormalizeDecodePolicy(cfg.Tokenizer.DecodePolicy)
	if err != nil {
		return Config{}, err
	}
	cfg.Tokenizer.DecodePolicy = policy

	if cfg.Paths.VocabPath == "" {
		path, err := hub.VocabPath(cfg.Hub.OutDir, cfg.Hub.Repo)
		if err != nil {
			return Config{}, fmt.Errorf("derive vocab path from hub.repo: %w", err)
		}
		cfg.Paths.VocabPath = path
	}

	return cfg, nil
}

// bindFlags binds each registered flag present in fs to its nested key, so a
// flag only wins over file and env values when it was set explicitly.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.dict_path", c.Paths.DictPath)
	v.SetDefault("paths.vocab_path", c.Paths.VocabPath)
	v.SetDefault("tokenizer.add_special_tokens", c.Tokenizer.AddSpecialTokens)
	v.SetDefault("tokenizer.decode_policy", c.Tokenizer.DecodePolicy)
	v.SetDefault("tokenizer.reserved_below", c.Tokenizer.ReservedBelow)
	v.SetDefault("tokenizer.cache_size", c.Tokenizer.CacheSize)
	v.SetDefault("tokenizer.batch_workers", c.Tokenizer.BatchWorkers)
	v.SetDefault("hub.repo", c.Hub.Repo)
	v.SetDefault("hub.out_dir", c.Hub.OutDir)
	v.SetDefault("hub.token", c.Hub.Token)
	v.SetDefault("hub.base_url", c.Hub.BaseURL)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("log_level", c.LogLevel)
}
