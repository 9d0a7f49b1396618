package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/localstorage"
)

var rootCmd = &cobra.Command{
	Use:   "localstorage",
	Short: "Local key-value storage CLI",
	Long:  "CLI for inspecting and editing localstorage files.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/localstorage/config.yaml)")
	flags.String("dir", "", "directory holding the storage file (default: working directory)")
	flags.String("file", localstorage.DefaultFilename, "storage file name")
	flags.Bool("encrypt", false, "encrypt values")
	flags.String("key", "", "encryption key")
	flags.String("salt", localstorage.DefaultEncryptionSalt, "encryption salt")
	flags.Int("compression", 0, "zstd compression level, 0-3")
	flags.String("codec", "json", "value codec: json or yaml")
	flags.String("log-level", "warn", "log level")

	viper.BindPFlag("dir", flags.Lookup("dir"))
	viper.BindPFlag("file", flags.Lookup("file"))
	viper.BindPFlag("encrypt", flags.Lookup("encrypt"))
	viper.BindPFlag("key", flags.Lookup("key"))
	viper.BindPFlag("salt", flags.Lookup("salt"))
	viper.BindPFlag("compression", flags.Lookup("compression"))
	viper.BindPFlag("codec", flags.Lookup("codec"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
}

func initConfig() {
	// .env.local wins over .env; neither overrides the real environment.
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}

	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LOCALSTORAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "localstorage")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "localstorage")
	}
	return ".localstorage.d"
}

func newLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "localstorage",
		Level:  hclog.LevelFromString(viper.GetString("log_level")),
		Output: os.Stderr,
	})
}

// openStore opens the configured storage with its file loaded. Commands that
// change data persist explicitly before closing.
func openStore() (*localstorage.LocalStorage, error) {
	codec, ok := localstorage.CodecByName(viper.GetString("codec"))
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", viper.GetString("codec"))
	}

	cfg := localstorage.DefaultConfig()
	cfg.AutoSave = false
	cfg.Filename = viper.GetString("file")
	cfg.EnableEncryption = viper.GetBool("encrypt")
	cfg.EncryptionSalt = viper.GetString("salt")
	cfg.Compression = viper.GetInt("compression")

	return localstorage.New(cfg,
		localstorage.WithBaseDir(viper.GetString("dir")),
		localstorage.WithEncryptionKey(viper.GetString("key")),
		localstorage.WithCodec(codec),
		localstorage.WithLogger(newLogger()),
	)
}
