package cmd

import (
	"context"
	"encoding/json"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Abhay650/RakshaNeeti/internal/income"
	"github.com/Abhay650/RakshaNeeti/internal/logger"
)

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "Summarize the dataset and the lookup model",
	Run: func(cmd *cobra.Command, _ []string) {
		reportSchemes(cmd)
	},
}

func init() {
	rootCmd.AddCommand(schemesCmd)

	schemesCmd.Flags().BoolP("report", "r", false, "print every scheme grouped by scope")
	schemesCmd.Flags().Bool("dump", false, "dump the whole dataset to a temporary JSON file")
}

func reportSchemes(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig(viper.GetViper())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	engine, err := loadEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading dataset", zap.Error(err))
	}

	dataset := engine.Dataset()
	counts := dataset.CountByLevel()

	fields := []zap.Field{
		zap.Int("schemes", dataset.Len()),
		zap.Strings("states", engine.States()),
	}
	for _, level := range income.Levels {
		fields = append(fields, zap.Int(level.String(), counts[level]))
	}
	if accuracy, ok := engine.ModelAccuracy(); ok {
		fields = append(fields, zap.Float64("lookup_accuracy", accuracy))
	}
	logger.Info("dataset summary", fields...)

	if report, _ := cmd.Flags().GetBool("report"); report {
		// do not bother error since the report is plain strings
		pretty, _ := json.MarshalIndent(dataset.ReportByScope(), "", "  ")
		logger.Info(string(pretty), zap.Int("schemes count", dataset.Len()))
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := dataset.DumpToTmpFile()
		if err != nil {
			logger.Fatal("dumping dataset", zap.Error(err))
		}
		logger.Info("dumping dataset to file", zap.String("filename", filename))
	}
}
