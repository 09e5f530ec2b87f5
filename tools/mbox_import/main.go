package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ProtonMail/localstore"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	configPath = flag.String("config", "mbox_import.yaml", "YAML configuration file.")
	dataDir    = flag.String("data-dir", "", "Directory of the store. Overrides data_dir.")
	accountID  = flag.String("account", "", "Account the store belongs to. Overrides account_id.")
	folderName = flag.String("folder", "", "Folder to import into. Overrides folder.")
	export     = flag.Bool("export", false, "Write the folder to the given file instead of importing it.")
	debug      = flag.Bool("debug", false, "Enable debug logging.")
)

type config struct {
	DataDir   string `mapstructure:"data_dir"`
	AccountID string `mapstructure:"account_id"`
	Folder    string `mapstructure:"folder"`
	Debug     bool   `mapstructure:"debug"`
}

func loadConfig(path string) (*config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("data_dir", ".")
	v.SetDefault("account_id", "local")
	v.SetDefault("folder", "INBOX")
	v.SetDefault("debug", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError

		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %v: %w", path, err)
		}
	}

	// Flags win over the file.
	for key, value := range map[string]string{"data_dir": *dataDir, "account_id": *accountID, "folder": *folderName} {
		if value != "" {
			v.Set(key, value)
		}
	}

	if *debug {
		v.Set("debug", true)
	}

	var cfg config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %v: %w", path, err)
	}

	return &cfg, nil
}

func main() {
	flag.Usage = func() {
		fmt.Printf("Usage %v [options] file.mbox\n", os.Args[0])
		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	var opts []localstore.Option

	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
		opts = append(opts, localstore.WithDebug())
	}

	if err := run(context.Background(), cfg, flag.Arg(0), opts...); err != nil {
		logrus.WithError(err).Fatal("Failed")
	}
}

func run(ctx context.Context, cfg *config, path string, opts ...localstore.Option) error {
	s, err := localstore.New(ctx, cfg.DataDir, cfg.AccountID, opts...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	defer func() {
		if err := s.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close store")
		}
	}()

	folder := s.GetFolder(cfg.Folder)

	exists, err := folder.Exists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		if *export {
			return fmt.Errorf("folder %v does not exist", cfg.Folder)
		}

		if err := folder.Create(ctx); err != nil {
			return err
		}
	}

	if err := folder.Open(ctx); err != nil {
		return err
	}

	if *export {
		f, err := os.Create(path)
		if err != nil {
			return err
		}

		defer f.Close()

		n, err := folder.ExportMbox(ctx, f)
		if err != nil {
			return err
		}

		logrus.WithField("count", n).WithField("folder", cfg.Folder).Info("Exported messages")

		return f.Close()
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close()

	n, err := folder.ImportMbox(ctx, f)
	if err != nil {
		return fmt.Errorf("imported %v messages before failing: %w", n, err)
	}

	logrus.WithField("count", n).WithField("folder", cfg.Folder).Info("Imported messages")

	return nil
}
