package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"miosub/internal/glossary"
	"miosub/internal/logging"
	"miosub/internal/pipeline"
	"miosub/internal/runstore"
	"miosub/internal/services/llm"
	"miosub/internal/stage"
)

func newGenerateCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		outputPath   string
		sourceLang   string
		targetLang   string
		glossaryPath string
		bilingual    bool
		review       bool
	)

	cmd := &cobra.Command{
		Use:   "generate <media-file>",
		Short: "Generate subtitles for a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if review {
				cfg.Glossary.AutoConfirm = false
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "miosub.log")},
			})
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			llmCfg := cfg.GetLLM()
			client := llm.NewClient(llm.Config{
				APIKey:         llmCfg.APIKey,
				BaseURL:        llmCfg.BaseURL,
				Model:          llmCfg.Model,
				Referer:        llmCfg.Referer,
				Title:          llmCfg.Title,
				TimeoutSeconds: llmCfg.TimeoutSeconds,
			})
			ai := stage.NewAIStages(client)

			store, err := runstore.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer func() { _ = store.Close() }()

			active, err := loadGlossaryFile(glossaryPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var runner *pipeline.Runner
			progress := func(p pipeline.Progress) {
				switch {
				case p.Status == pipeline.StatusAwaitingGlossary:
					go promptGlossary(runner, p, active, out, cmd.InOrStdin())
				case p.Toast:
					fmt.Fprintf(out, "%s: %s\n", p.Status, p.Message)
				case p.ChunkStatus == pipeline.ChunkProcessing:
					fmt.Fprintf(out, "chunk %d: %s\n", p.Chunk, p.Stage)
				case p.ChunkStatus == pipeline.ChunkCompleted:
					fmt.Fprintf(out, "[%d/%d] chunk %d done\n", p.Completed, p.Total, p.Chunk)
				case p.ChunkStatus == pipeline.ChunkError:
					fmt.Fprintf(out, "chunk %d failed: %s\n", p.Chunk, p.Message)
				}
			}
			runner = pipeline.NewRunner(cfg, logger, stage.Functions{
				Transcriber: ai,
				Refiner:     ai,
				Aligner:     ai,
				Translator:  ai,
				Extractor:   ai,
			}, nil, store, progress)

			mediaPath := args[0]
			if outputPath == "" {
				outputPath = strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ".srt"
			}
			if sourceLang == "" {
				sourceLang = cfg.Languages.Source
			}
			if targetLang == "" {
				targetLang = cfg.Languages.Target
			}

			result, err := runner.Run(cmd.Context(), pipeline.Request{
				MediaPath:      mediaPath,
				OutputPath:     outputPath,
				SourceLanguage: sourceLang,
				TargetLanguage: targetLang,
				ActiveGlossary: active,
				Bilingual:      bilingual,
			})
			if err != nil {
				return err
			}

			switch result.Status {
			case pipeline.StatusCancelled:
				fmt.Fprintf(out, "Cancelled after %d of %d chunks; partial result kept in run %s\n",
					result.ChunksCompleted, result.ChunksTotal, result.RunID)
			default:
				fmt.Fprintf(out, "Wrote %d segments to %s (run %s)\n",
					len(result.Segments), outputPath, result.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output subtitle path (defaults to the media path with .srt)")
	cmd.Flags().StringVar(&sourceLang, "source", "", "Source language tag (overrides configuration)")
	cmd.Flags().StringVar(&targetLang, "target", "", "Target language tag (overrides configuration)")
	cmd.Flags().StringVar(&glossaryPath, "glossary", "", "JSON file of glossary terms to seed the run")
	cmd.Flags().BoolVar(&bilingual, "bilingual", false, "Render translation above the original text")
	cmd.Flags().BoolVar(&review, "review", false, "Pause for glossary review even when auto-confirm is enabled")
	return cmd
}

// promptGlossary runs on its own goroutine while the pipeline is suspended on
// the confirmation gate. Accepting keeps every extracted term; declining
// continues with the seed glossary only.
func promptGlossary(runner *pipeline.Runner, p pipeline.Progress, active []glossary.Item, out io.Writer, in io.Reader) {
	fmt.Fprintln(out, renderGlossaryTable(p.Terms))
	fmt.Fprint(out, "Accept extracted terms? [Y/n] ")

	accept := true
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		accept = answer == "" || answer == "y" || answer == "yes"
	}

	items := active
	if accept {
		items = glossary.MergeItems(active, p.Terms)
	}
	if err := runner.ConfirmGlossary(items); err != nil {
		// The run may have been cancelled while the prompt was open.
		fmt.Fprintf(out, "glossary confirmation not delivered: %v\n", err)
	}
}

func loadGlossaryFile(path string) ([]glossary.Item, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary file: %w", err)
	}
	var items []glossary.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse glossary file %s: %w", path, err)
	}
	return items, nil
}
