package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Abhay650/RakshaNeeti/internal/logger"
	"github.com/Abhay650/RakshaNeeti/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("address", "", "listen address (default from config, :8000)")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig(viper.GetViper())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting rakshaneeti server", zap.String("version", version))

	d, err := buildDeps(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing services", zap.Error(err))
	}
	defer d.Close()

	srv, err := server.New(config.Server, d.engine, d.translator, d.transcriber, logger.Named("http"))
	if err != nil {
		logger.Fatal("creating http server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("http server stopped", zap.Error(err))
		return
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}
