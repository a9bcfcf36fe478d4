package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"fraudengine/internal/factory"
	"fraudengine/internal/util"
)

func main() {
	var sourceFlag string
	var force bool
	flag.StringVar(&sourceFlag, "source", "all", "refresh source: all, tor, disposable_emails, asn, user_agents (comma-separated for multiple)")
	flag.BoolVar(&force, "force", false, "bypass the per-source minimum refresh interval")
	flag.Bool("sync", false, "run in the foreground and wait for every source to finish (the only mode; runs are always synchronous)")
	flag.Parse()

	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	pipeline := f.RefreshPipeline()

	names := pipeline.SourceNames()
	if sourceFlag != "all" {
		names = strings.Split(sourceFlag, ",")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	report := pipeline.Run(ctx, names, force)
	elapsed := time.Since(start)

	exitCode := 0
	for name, sr := range report.Sources {
		fields := []zap.Field{
			util.String("source", name),
			util.Bool("success", sr.Success),
			util.Bool("skipped", sr.Skipped),
			util.Int("count", sr.Count),
		}
		if sr.Error != "" {
			fields = append(fields, util.String("error", sr.Error))
			util.Error("refresh source failed", fields...)
			exitCode = 1
			continue
		}
		util.Info("refresh source completed", fields...)
	}

	util.Info("refresh run completed",
		util.Int("total_rows", report.Total),
		util.Duration("duration", elapsed),
	)

	os.Exit(exitCode)
}
