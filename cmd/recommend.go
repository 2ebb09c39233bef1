package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Abhay650/RakshaNeeti/internal/income"
	"github.com/Abhay650/RakshaNeeti/internal/logger"
	"github.com/Abhay650/RakshaNeeti/internal/recommend"
	"github.com/Abhay650/RakshaNeeti/internal/translate"
)

const (
	PromptSearchAgain  = "Search again"
	PromptStateSchemes = "Show all schemes of the state"
	PromptDumpToFile   = "Dump results to file"
	PromptExit         = "Exit"
)

var errExit = errors.New("exit requested")

var actionPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptSearchAgain, PromptStateSchemes, PromptDumpToFile, PromptExit},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend a health scheme for a state and an income description",
	Run: func(cmd *cobra.Command, _ []string) {
		runRecommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("state", "s", "", "state of residence (asked when empty)")
	recommendCmd.Flags().StringP("text", "t", "", "income or eligibility description (asked when empty)")
	recommendCmd.Flags().String("level", "", "income level override: Low, Middle, All or Unknown")
	recommendCmd.Flags().StringP("language", "l", "", "language of the answer (asked when empty)")
	recommendCmd.Flags().StringP("audio", "a", "", "audio file with the spoken income description")
	recommendCmd.Flags().StringP("mode", "m", "", "matching strategy: filter, lookup or text (default from config)")
	recommendCmd.Flags().BoolP("no-prompt", "n", false, "print the result and exit without asking anything")
}

// recommendation is one interaction of the recommend command.
type recommendation struct {
	state    string
	text     string
	level    income.Level
	language string
	strategy recommend.Strategy
}

func runRecommend(cmd *cobra.Command) {
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

	logger.Info("starting rakshaneeti", zap.String("version", version))

	d, err := buildDeps(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing services", zap.Error(err))
	}
	defer d.Close()

	noPrompt, _ := cmd.Flags().GetBool("no-prompt")

	req, err := requestFromFlags(cmd, d.engine.Strategy())
	if err != nil {
		logger.Fatal("invalid flags", zap.Error(err))
	}

	for {
		if err := completeRequest(ctx, cmd, d, &req, noPrompt, logger); err != nil {
			logger.Fatal("reading input", zap.Error(err))
		}

		result, err := d.engine.RecommendWith(ctx, req.strategy, recommend.Query{
			State:       req.state,
			IncomeLevel: req.level,
			Text:        req.text,
		})
		if err != nil {
			logger.Fatal("recommending", zap.Error(err))
		}

		printResult(ctx, d.translator, result, req.language, logger)

		if noPrompt {
			return
		}

		again, err := resultActions(d.engine, result, logger)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
		if again {
			req = recommendation{language: req.language, strategy: req.strategy}
		}
	}
}

func requestFromFlags(cmd *cobra.Command, defaultStrategy recommend.Strategy) (recommendation, error) {
	flags := cmd.Flags()
	state, _ := flags.GetString("state")
	text, _ := flags.GetString("text")
	language, _ := flags.GetString("language")
	rawLevel, _ := flags.GetString("level")
	mode, _ := flags.GetString("mode")

	req := recommendation{
		state:    strings.TrimSpace(state),
		text:     strings.TrimSpace(text),
		language: strings.TrimSpace(language),
		strategy: defaultStrategy,
	}

	if mode != "" {
		strategy, err := recommend.ParseStrategy(mode)
		if err != nil {
			return req, err
		}
		req.strategy = strategy
	}

	if rawLevel != "" {
		level, err := income.ParseLevel(rawLevel)
		if err != nil {
			return req, err
		}
		req.level = level
	}

	if language != "" {
		if _, err := translate.ResolveLanguage(language); err != nil {
			return req, err
		}
	}

	return req, nil
}

// completeRequest asks for everything the flags left out.
func completeRequest(ctx context.Context, cmd *cobra.Command, d *deps, req *recommendation, noPrompt bool, log *zap.Logger) error {
	if req.language == "" {
		if noPrompt {
			req.language = translate.English.Name
		} else {
			_, language, err := (&promptui.Select{
				Label: "Choose a language",
				Items: translate.LanguageNames(),
			}).Run()
			if err != nil {
				return err
			}
			req.language = language
		}
	}

	if req.state == "" {
		if noPrompt {
			return errors.New("--state is required with --no-prompt")
		}
		states := d.engine.States()
		_, state, err := (&promptui.Select{
			Label:    "Choose your state",
			Items:    states,
			Size:     10,
			Searcher: containsSearcher(states),
		}).Run()
		if err != nil {
			return err
		}
		req.state = state
	}

	if req.text == "" {
		if audioFile, _ := cmd.Flags().GetString("audio"); audioFile != "" {
			text, err := transcribeFile(ctx, d, audioFile)
			if err != nil {
				return err
			}
			if text == "" {
				log.Warn("could not recognise speech, please type the description instead", zap.String("file", audioFile))
			} else {
				log.Info("recognised speech", zap.String("text", text))
			}
			req.text = text
			// only the first round uses the recording
			_ = cmd.Flags().Set("audio", "")
		}
	}

	if req.text == "" && req.level == "" {
		if noPrompt {
			return errors.New("--text, --audio or --level is required with --no-prompt")
		}
		text, err := (&promptui.Prompt{
			Label: "Describe your income or eligibility (e.g. BPL card holder, senior citizen)",
		}).Run()
		if err != nil {
			return err
		}
		req.text = strings.TrimSpace(text)
	}

	if req.level == "" {
		req.level = income.Classify(req.text)
	}

	log.Debug("request completed",
		append(logger.QueryFields(req.state, req.level.String(), string(req.strategy)),
			zap.String(logger.FieldLanguage, req.language),
		)...,
	)

	return nil
}

func transcribeFile(ctx context.Context, d *deps, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}
	return d.transcriber.TranscribeAs(ctx, audio, mimeTypeOf(path)), nil
}

// mimeTypeOf guesses the audio mime type from the file extension. Empty
// means the configured default.
func mimeTypeOf(path string) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		return ""
	}
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = mimeType[:idx]
	}
	return mimeType
}

func containsSearcher(items []string) func(string, int) bool {
	return func(input string, index int) bool {
		return strings.Contains(strings.ToLower(items[index]), strings.ToLower(strings.TrimSpace(input)))
	}
}

func printResult(ctx context.Context, translator *translate.Service, result *recommend.Result, language string, log *zap.Logger) {
	fields := logger.QueryFields(result.Query.State, result.Query.IncomeLevel.String(), string(result.Strategy))
	if result.Fallback != "" {
		fields = append(fields, zap.String("fallback", result.Fallback))
	}

	if result.Empty() {
		log.Info("no matching schemes found", fields...)
		return
	}

	log.Info("matching schemes", append(fields,
		zap.Int("count", len(result.Matches)),
		zap.Bool("approximate", result.Approximate()),
	)...)

	for _, m := range result.Matches {
		t := translator.TranslateScheme(ctx, m.Scheme, language)

		schemeFields := []zap.Field{
			zap.String("scope", m.Scheme.Scope),
			zap.String("eligibility", t.Eligibility.Text),
			zap.String("income_level", m.Scheme.IncomeLevel.String()),
		}
		if m.Scheme.Description != "" {
			schemeFields = append(schemeFields, zap.String("description", m.Scheme.Description))
		}
		if m.Approximate {
			schemeFields = append(schemeFields, zap.Bool("approximate", true))
		}
		if result.Strategy == recommend.StrategyLookup {
			schemeFields = append(schemeFields, zap.Float64("confidence", m.Confidence))
		}
		if t.Name.Untranslated || t.Eligibility.Untranslated {
			schemeFields = append(schemeFields, zap.Bool("untranslated", true))
		}

		log.Info(t.Name.Text, schemeFields...)
	}
}

// resultActions runs the action menu. It reports whether a new search was
// requested.
func resultActions(engine *recommend.Engine, result *recommend.Result, log *zap.Logger) (bool, error) {
	for {
		_, action, err := actionPrompt.Run()
		if err != nil {
			return false, err
		}

		again, err := handleAction(action, engine, result, log)
		if err != nil || again {
			return again, err
		}
	}
}

func handleAction(action string, engine *recommend.Engine, result *recommend.Result, log *zap.Logger) (bool, error) {
	switch action {
	case PromptSearchAgain:
		return true, nil
	case PromptStateSchemes:
		all := engine.StateSchemes(result.Query.State)
		log.Info("schemes of the state", zap.String(logger.FieldState, result.Query.State), zap.Int("count", all.Len()))
		for _, sc := range all.Items {
			log.Info(sc.Name, zap.String("eligibility", sc.Eligibility), zap.String("income_level", sc.IncomeLevel.String()))
		}
		return false, nil
	case PromptDumpToFile:
		filename, err := dumpResult(result)
		if err != nil {
			return false, fmt.Errorf("dump results to file: %w", err)
		}
		log.Info("dumping result to file", zap.String("filename", filename))
		return false, nil
	case PromptExit:
		log.Info("exiting", zap.String("reason", "got exit from prompt"))
		return false, errExit
	default:
		return false, fmt.Errorf("invalid action: %s", action)
	}
}

func dumpResult(result *recommend.Result) (string, error) {
	return result.Schemes().DumpToTmpFile()
}
