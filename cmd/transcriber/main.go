package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ytget/media-transcriber/internal/config"
	"github.com/ytget/media-transcriber/internal/extract"
	"github.com/ytget/media-transcriber/internal/logger"
	"github.com/ytget/media-transcriber/internal/media"
	"github.com/ytget/media-transcriber/internal/pipeline"
	"github.com/ytget/media-transcriber/internal/store"
	"github.com/ytget/media-transcriber/internal/summarize"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	inputPath := flag.String("input", "", "file with one 'label URL' per line (default: stdin)")
	runSummarize := flag.Bool("summarize", false, "summarize completed transcripts after the queue drains")
	listOnly := flag.Bool("list", false, "print reconciled task state and exit")
	flag.Parse()

	cfg := config.Load()
	log := logger.New().WithField("service", "media-transcriber")
	log.WithField("version", version).Info("starting")

	if err := run(cfg, log, *inputPath, *runSummarize, *listOnly); err != nil {
		log.WithError(err).Fatal("run failed")
	}
}

func run(cfg config.Config, log *logrus.Entry, inputPath string, runSummarize, listOnly bool) error {
	ctx := context.Background()

	st, err := store.New(cfg.OutputDir, cfg.ScratchMaxFiles, log)
	if err != nil {
		return err
	}

	svc := pipeline.NewService(
		st,
		media.NewYtdlpDownloader(log),
		media.NewFFmpegExtractor(log),
		media.NewWhisperClient(cfg.WhisperURL, cfg.HTTPTimeout, log),
		pipeline.NewLogObserver(log),
		log,
	)
	defer svc.Close()

	reconciled, err := svc.Reconcile()
	if err != nil {
		return err
	}
	log.WithField("tasks", reconciled).Info("reconciled from artifact store")

	if listOnly {
		printTasks(svc)
		return nil
	}

	raw, err := readInput(inputPath)
	if err != nil {
		return err
	}
	pairs := extract.Pairs(raw)
	pairs = extract.NewPlaylistExpander(log).Expand(ctx, pairs)

	if err := st.CleanupScratch(); err != nil {
		log.WithError(err).Warn("scratch cleanup failed")
	}

	if _, err := svc.SubmitAll(pairs); err != nil {
		return err
	}
	svc.Wait()

	if runSummarize {
		summarizer := summarize.NewService(
			svc,
			st,
			media.NewLLMClient(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.HTTPTimeout, log),
			cfg.SummaryPrompt,
			cfg.SummaryConcurrency,
			log,
		)
		if _, err := summarizer.Run(ctx); err != nil {
			return err
		}
	}

	printTasks(svc)
	return nil
}

func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input file: %w", err)
	}
	return string(data), nil
}

func printTasks(svc *pipeline.Service) {
	for _, t := range svc.Tasks() {
		line := fmt.Sprintf("%-12s %s", t.State, t.DisplayTitle())
		if t.LastError != "" {
			line += " (" + t.LastError + ")"
		}
		fmt.Println(line)
	}
}
