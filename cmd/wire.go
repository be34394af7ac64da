package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	chatapi "chainchat/internal/adapters/chat"
	ledgerapi "chainchat/internal/adapters/ledger"
	tomlstore "chainchat/internal/adapters/store/toml"
	"chainchat/internal/application"
	"chainchat/internal/ports"
)

const configDirName = ".chainchat"

type app struct {
	wallet       *application.WalletService
	conversation *application.ConversationService
	ledger       ports.LedgerClient
	logger       *zap.Logger
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(filepath.Join(homeDir, configDirName))
	cfg.SetEnvPrefix("CHAINCHAT")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	cfg.SetDefault("backend.url", "http://localhost:8000")
	cfg.SetDefault("ledger.url", "http://localhost:5000")
	cfg.SetDefault("wallet.poll_interval", application.DefaultPollInterval)
	cfg.SetDefault("request.timeout", 30*time.Second)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	store, err := tomlstore.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire identity store: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	requestTimeout := cfg.GetDuration("request.timeout")
	ledgerClient := ledgerapi.New(cfg.GetString("ledger.url"), http.DefaultClient, requestTimeout)
	chatClient := chatapi.New(cfg.GetString("backend.url"), http.DefaultClient, requestTimeout)

	walletService := application.NewWalletService(ledgerClient, store, logger, cfg.GetDuration("wallet.poll_interval"))
	conversationService := application.NewConversationService(chatClient, store, walletService, ports.SystemClock{}, logger)

	return &app{
		wallet:       walletService,
		conversation: conversationService,
		ledger:       ledgerClient,
		logger:       logger,
	}, nil
}
