package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.dedis.ch/onet/v3/log"

	lr "github.com/halilibrahimkanpak/he_logreg/lr_training"
)

func main() {
	var (
		configPath string
		override   lr.RunConfig
	)

	flagSet := flag.NewFlagSet("train_lr", flag.ExitOnError)
	flagSet.StringVar(&configPath, "config", "", "TOML run configuration (flags below override it)")
	flagSet.StringVar(&override.DataPath, "data", "", "Training CSV, header row first, label in the last column")
	flagSet.StringVar(&override.TestPath, "test", "", "Optional test CSV evaluated with encrypted inference")
	flagSet.IntVar(&override.Iterations, "iterations", lr.DefaultIterations, "Number of gradient steps")
	flagSet.Float64Var(&override.LearningRate, "lr", lr.DefaultLearningRate, "Learning rate")
	flagSet.IntVar(&override.BatchSize, "batch", 0, "Records per iteration (0 = all)")
	flagSet.IntVar(&override.Workers, "workers", lr.NumWorkers, "Parallel workers for per-record work")
	flagSet.StringVar(&override.Reduction, "reduction", "sequential", "Gradient accumulation order: sequential | tree")
	flagSet.BoolVar(&override.HomomorphicForward, "he-forward", false, "Compute w·x homomorphically")
	flagSet.StringVar(&override.CheckpointPath, "checkpoint", "", "Checkpoint file for resumable training")
	flagSet.StringVar(&override.PlotPath, "plot", "", "Write an accuracy/cost plot (png, svg or pdf)")
	flagSet.IntVar(&override.Debug, "debug", 1, "Log level")
	flagSet.Parse(os.Args[1:])

	cfg := lr.DefaultRunConfig()
	if configPath != "" {
		var err error
		if cfg, err = lr.LoadRunConfig(configPath); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	// only flags given on the command line replace file values
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.DataPath = override.DataPath
		case "test":
			cfg.TestPath = override.TestPath
		case "iterations":
			cfg.Iterations = override.Iterations
		case "lr":
			cfg.LearningRate = override.LearningRate
		case "batch":
			cfg.BatchSize = override.BatchSize
		case "workers":
			cfg.Workers = override.Workers
		case "reduction":
			cfg.Reduction = override.Reduction
		case "he-forward":
			cfg.HomomorphicForward = override.HomomorphicForward
		case "checkpoint":
			cfg.CheckpointPath = override.CheckpointPath
		case "plot":
			cfg.PlotPath = override.PlotPath
		case "debug":
			cfg.Debug = override.Debug
		}
	})

	if cfg.DataPath == "" {
		fmt.Println("Usage: train_lr -data <train.csv> [options]")
		flagSet.PrintDefaults()
		os.Exit(1)
	}
	log.SetDebugVisible(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := lr.Run(ctx, cfg); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}
