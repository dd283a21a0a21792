package config

import (
	"fmt"
	"strings"

	"github.com/example/go-deepqa/internal/instance"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/go-playground/validator.v9"
)

var validate = validator.New()

type Config struct {
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Data      DataConfig      `mapstructure:"data"`
	Server    ServerConfig    `mapstructure:"server"`
	LogLevel  string          `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
}

type TokenizerConfig struct {
	Type               string `mapstructure:"type"`
	WordSplitter       string `mapstructure:"word_splitter"`
	WordFilter         string `mapstructure:"word_filter"`
	WordStemmer        string `mapstructure:"word_stemmer"`
	SentencePieceModel string `mapstructure:"sentencepiece_model"`
}

type DataConfig struct {
	InstanceType string `mapstructure:"instance_type"`
	// Fixed padding lengths; 0 means infer from the dataset.
	NumSentenceWords  int                 `mapstructure:"num_sentence_words" validate:"min=0"`
	NumWordCharacters int                 `mapstructure:"num_word_characters" validate:"min=0"`
	Truncate          bool                `mapstructure:"truncate"`
	MinCount          int                 `mapstructure:"min_count" validate:"min=1"`
	Workers           int                 `mapstructure:"workers" validate:"min=0,max=256"`
	Namespaces        instance.Namespaces `mapstructure:"namespaces"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr" validate:"required"`
	Workers         int    `mapstructure:"workers" validate:"min=1,max=256"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes" validate:"min=0"`
	RequestTimeout  int    `mapstructure:"request_timeout" validate:"min=0"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"min=1"`
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
		Tokenizer: TokenizerConfig{
			Type:         "words",
			WordSplitter: "simple",
			WordFilter:   "pass_through",
			WordStemmer:  "pass_through",
		},
		Data: DataConfig{
			InstanceType: "text_classification",
			MinCount:     1,
			Workers:      4,
			Namespaces:   instance.DefaultNamespaces(),
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         2,
			MaxTextBytes:    4096,
			RequestTimeout:  60,
			ShutdownTimeout: 30,
		},
		LogLevel: "info",
	}
}

// flagKeys maps every flag registered by RegisterFlags to its config key.
var flagKeys = map[string]string{
	"tokenizer":           "tokenizer.type",
	"word-splitter":       "tokenizer.word_splitter",
	"word-filter":         "tokenizer.word_filter",
	"word-stemmer":        "tokenizer.word_stemmer",
	"sentencepiece-model": "tokenizer.sentencepiece_model",
	"instance-type":       "data.instance_type",
	"num-sentence-words":  "data.num_sentence_words",
	"num-word-characters": "data.num_word_characters",
	"truncate":            "data.truncate",
	"min-count":           "data.min_count",
	"workers":             "data.workers",
	"server-listen-addr":  "server.listen_addr",
	"server-workers":      "server.workers",
	"max-text-bytes":      "server.max_text_bytes",
	"request-timeout":     "server.request_timeout",
	"shutdown-timeout":    "server.shutdown_timeout",
	"log-level":           "log_level",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("tokenizer", defaults.Tokenizer.Type, "Tokenization strategy (words|characters|words_and_characters)")
	fs.String("word-splitter", defaults.Tokenizer.WordSplitter, "Word splitter (simple|just_spaces|sentencepiece)")
	fs.String("word-filter", defaults.Tokenizer.WordFilter, "Word filter (pass_through|stopwords)")
	fs.String("word-stemmer", defaults.Tokenizer.WordStemmer, "Word stemmer (pass_through|porter)")
	fs.String("sentencepiece-model", defaults.Tokenizer.SentencePieceModel, "Path to SentencePiece model for the sentencepiece splitter")
	fs.String("instance-type", defaults.Data.InstanceType, "Dataset line format (text_classification|verb_semantics)")
	fs.Int("num-sentence-words", defaults.Data.NumSentenceWords, "Fixed sentence length in words (0 = longest in dataset)")
	fs.Int("num-word-characters", defaults.Data.NumWordCharacters, "Fixed word length in characters (0 = longest in dataset)")
	fs.Bool("truncate", defaults.Data.Truncate, "Drop leading words of sentences longer than the sentence length")
	fs.Int("min-count", defaults.Data.MinCount, "Minimum token count for vocabulary inclusion")
	fs.Int("workers", defaults.Data.Workers, "Dataset indexing goroutines (0 = GOMAXPROCS)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-workers", defaults.Server.Workers, "Max concurrent /index requests")
	fs.Int("max-text-bytes", defaults.Server.MaxTextBytes, "Max request text size in bytes (0 = unlimited)")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds (0 = none)")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
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

	v.SetEnvPrefix("DEEPQA")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("deepqa")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = normalizeLogLevel(cfg.LogLevel)

	return cfg, nil
}

// bindFlags binds each known flag to its nested config key so that config
// files and environment variables address the same setting.
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
	v.SetDefault("tokenizer.type", c.Tokenizer.Type)
	v.SetDefault("tokenizer.word_splitter", c.Tokenizer.WordSplitter)
	v.SetDefault("tokenizer.word_filter", c.Tokenizer.WordFilter)
	v.SetDefault("tokenizer.word_stemmer", c.Tokenizer.WordStemmer)
	v.SetDefault("tokenizer.sentencepiece_model", c.Tokenizer.SentencePieceModel)
	v.SetDefault("data.instance_type", c.Data.InstanceType)
	v.SetDefault("data.num_sentence_words", c.Data.NumSentenceWords)
	v.SetDefault("data.num_word_characters", c.Data.NumWordCharacters)
	v.SetDefault("data.truncate", c.Data.Truncate)
	v.SetDefault("data.min_count", c.Data.MinCount)
	v.SetDefault("data.workers", c.Data.Workers)
	v.SetDefault("data.namespaces.words", c.Data.Namespaces.Words)
	v.SetDefault("data.namespaces.characters", c.Data.Namespaces.Characters)
	v.SetDefault("data.namespaces.tags", c.Data.Namespaces.Tags)
	v.SetDefault("data.namespaces.state_changes", c.Data.Namespaces.StateChanges)
	v.SetDefault("data.namespaces.labels", c.Data.Namespaces.Labels)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("log_level", c.LogLevel)
}

// normalizeLogLevel makes level names case-insensitive.
func normalizeLogLevel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate checks field ranges and that the tokenizer strategy and instance
// type resolve. Splitter, filter and stemmer names are checked when the
// tokenizer is built.
func (c Config) Validate() error {
	c.LogLevel = normalizeLogLevel(c.LogLevel)
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.TokenizerParams(); err != nil {
		return err
	}

	if _, err := c.InstanceType(); err != nil {
		return err
	}

	return nil
}
