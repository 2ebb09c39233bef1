package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Abhay650/RakshaNeeti/internal/recommend"
	"github.com/Abhay650/RakshaNeeti/internal/schemes"
	"github.com/Abhay650/RakshaNeeti/internal/server"
	"github.com/Abhay650/RakshaNeeti/internal/speech"
	"github.com/Abhay650/RakshaNeeti/internal/translate"
)

const (
	app       = "rakshaneeti"
	envPrefix = "RAKSHANEETI"
)

type Config struct {
	Dataset     DatasetConfig     `mapstructure:"dataset"`
	Recommend   recommend.Config  `mapstructure:"recommend"`
	AI          *AIConfig         `mapstructure:"ai"`
	Translation TranslationConfig `mapstructure:"translation"`
	Speech      SpeechConfig      `mapstructure:"speech"`
	Server      server.Config     `mapstructure:"server"`
}

type DatasetConfig struct {
	// Source is a local path or an s3://bucket/key URI.
	Source   string            `mapstructure:"source"`
	SkipRows int               `mapstructure:"skip-rows"`
	Encoding string            `mapstructure:"encoding"`
	S3       schemes.S3Options `mapstructure:"s3"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type TranslationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

type CacheConfig struct {
	// Backend is memory, redis or none.
	Backend string `mapstructure:"backend"`

	translate.RedisConfig `mapstructure:",squash"`
}

type SpeechConfig struct {
	MIMEType string        `mapstructure:"mime-type"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "rakshaneeti recommends government health schemes by state and income",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is rakshaneeti.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("dataset", "", "dataset CSV path or s3:// URI")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("dataset.source", rootCmd.PersistentFlags().Lookup("dataset"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset.source", "health_schemes.csv")
	v.SetDefault("dataset.skip-rows", 0)
	v.SetDefault("dataset.encoding", schemes.EncodingAuto)
	v.SetDefault("dataset.s3.region", "ap-south-1")
	v.SetDefault("dataset.s3.endpoint", "")
	v.SetDefault("dataset.s3.access-key", "")
	v.SetDefault("dataset.s3.secret-key", "")

	v.SetDefault("recommend.strategy", string(recommend.StrategyFilter))
	v.SetDefault("recommend.seed", recommend.DefaultSeed)
	v.SetDefault("recommend.test-size", recommend.DefaultTestSize)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)

	v.SetDefault("translation.timeout", translate.DefaultTimeout)
	v.SetDefault("translation.cache.backend", "memory")
	v.SetDefault("translation.cache.redis-address", "localhost:6379")
	v.SetDefault("translation.cache.redis-password", "")
	v.SetDefault("translation.cache.redis-db", 0)
	v.SetDefault("translation.cache.ttl", 24*time.Hour)
	v.SetDefault("translation.cache.prefix", "")

	v.SetDefault("speech.mime-type", speech.DefaultMIMEType)
	v.SetDefault("speech.timeout", speech.DefaultTimeout)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.read-timeout", 30*time.Second)
	v.SetDefault("server.write-timeout", 60*time.Second)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)
	v.SetDefault("server.max-audio-bytes", 10<<20)
}

func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if err := readConfig(viper.GetViper(), cfgFile); err != nil {
		log.Fatal(err)
	}
}

// readConfig reads the config file and environment into v. A missing
// default config file is not an error, an explicit one is.
func readConfig(v *viper.Viper, file string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return v.ReadInConfig()
	}

	v.AddConfigPath(".")
	v.SetConfigName(app)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}

func getConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	return config, nil
}
