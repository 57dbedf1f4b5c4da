package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/emergingrobotics/go-edgeimpulse/pkg/build"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/metadata"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/studio"
)

// Version information (set by ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

const defaultModelDir = "model"

func main() {
	// A .env next to the binary is the usual place for the Studio
	// credentials during development.
	_ = godotenv.Load()

	if os.Getenv("EI_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	if len(os.Args) < 2 {
		printUsage()
		return
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "build":
		runBuild(args)
	case "download":
		runDownload(args)
	case "metadata":
		runMetadata(args)
	case "clean":
		runClean(args)
	case "version":
		printVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Edge Impulse model build tool")
	fmt.Println()
	fmt.Println("Usage: eibuild <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  build [dir]            Fetch the model if needed and build the static library")
	fmt.Println("  download [dir]         Download and extract the model from Edge Impulse Studio")
	fmt.Println("  metadata [dir]         Print model metadata, or generate Go constants with -out")
	fmt.Println("  clean [dir]            Remove the extracted model tree")
	fmt.Println("  version                Print version information")
	fmt.Println("  help                   Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  EI_PROJECT_ID          Edge Impulse Studio project id")
	fmt.Println("  EI_API_KEY             Edge Impulse Studio API key")
	fmt.Println("  EI_MODEL               Copy the model tree from this local path instead")
	fmt.Println("  EI_ENGINE              Deployment engine (default tflite-eon)")
	fmt.Println("  TARGET_*, USE_*        Cross-compilation and engine flags, see docs")
}

func printVersion() {
	fmt.Printf("eibuild version %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Go version: %s\n", GoVersion)
}

func modelDirArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return defaultModelDir
}

// ensureModel makes sure a model tree exists under dir, copying from
// EI_MODEL or downloading from Studio when it does not.
func ensureModel(ctx context.Context, dir string) error {
	if err := build.ValidateModelDir(dir); err == nil {
		log.WithField("dir", dir).Info("Using existing model tree")
		return nil
	}

	if local := os.Getenv("EI_MODEL"); local != "" {
		log.WithFields(log.Fields{"from": local, "to": dir}).Info("Copying local model tree")
		if err := build.CopyTree(local, dir); err != nil {
			return err
		}
		return build.ValidateModelDir(dir)
	}

	if err := downloadModel(ctx, dir); err != nil {
		return err
	}
	return build.ValidateModelDir(dir)
}

func downloadModel(ctx context.Context, dir string, opts ...studio.Option) error {
	projectID := os.Getenv("EI_PROJECT_ID")
	if _, err := strconv.Atoi(projectID); err != nil {
		return fmt.Errorf("EI_PROJECT_ID must be set to a project number: %w", err)
	}
	client, err := studio.NewClient(projectID, os.Getenv("EI_API_KEY"), opts...)
	if err != nil {
		return err
	}
	return client.FetchModel(ctx, dir, os.Getenv("EI_ENGINE"))
}

func runBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	gen := fs.String("gen", "", "also write generated Go constants to this file")
	pkg := fs.String("pkg", "modelinfo", "package name for generated Go constants")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx := signalContext()
	dir := modelDirArg(fs.Args())

	if err := ensureModel(ctx, dir); err != nil {
		log.WithError(err).Fatal("Failed to obtain model")
	}

	cfg, err := build.LoadConfig(dir)
	if err != nil {
		log.WithError(err).Fatal("Invalid build configuration")
	}
	log.WithFields(log.Fields{
		"platform": cfg.Platform,
		"engine":   cfg.Engine,
	}).Info("Building model library")

	builder, err := build.NewBuilder(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to create builder")
	}
	if err := builder.Prepare(); err != nil {
		log.WithError(err).Fatal("Failed to prepare model tree")
	}
	artifacts, err := builder.Build(ctx)
	if err != nil {
		log.WithError(err).Fatal("Build failed")
	}
	log.WithField("lib", artifacts.LibPath).Info("Model library ready")

	if *gen != "" {
		meta, err := metadata.ParseFile(build.MetadataHeaderPath(dir))
		if err != nil {
			log.WithError(err).Fatal("Failed to parse model metadata")
		}
		if err := os.WriteFile(*gen, meta.GenerateGo(*pkg), 0o644); err != nil {
			log.WithError(err).Fatal("Failed to write generated constants")
		}
		log.WithField("out", *gen).Info("Generated model constants")
	}
}

func runDownload(args []string) {
	ctx := signalContext()
	dir := modelDirArg(args)
	if err := downloadModel(ctx, dir); err != nil {
		log.WithError(err).Fatal("Download failed")
	}
}

func runMetadata(args []string) {
	fs := flag.NewFlagSet("metadata", flag.ExitOnError)
	pkg := fs.String("pkg", "modelinfo", "package name for generated Go constants")
	out := fs.String("out", "", "write generated Go constants to this file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	dir := modelDirArg(fs.Args())
	meta, err := metadata.ParseFile(build.MetadataHeaderPath(dir))
	if err != nil {
		log.WithError(err).Fatal("Failed to parse model metadata")
	}

	if *out != "" {
		if err := os.WriteFile(*out, meta.GenerateGo(*pkg), 0o644); err != nil {
			log.WithError(err).Fatal("Failed to write generated constants")
		}
		log.WithField("out", *out).Info("Generated model constants")
		return
	}

	fmt.Printf("Project: %s (id %d, owner %s, deploy v%d)\n",
		meta.ProjectName(), meta.ProjectID(), meta.ProjectOwner(), meta.DeployVersion())
	fmt.Printf("  Sensor:     %s\n", meta.SensorType())
	fmt.Printf("  Input:      %dx%dx%d (%d features)\n",
		meta.InputWidth(), meta.InputHeight(), meta.InputFrames(), meta.InputFeaturesCount())
	fmt.Printf("  Labels:     %d\n", meta.LabelCount())
	fmt.Printf("  Interval:   %.2f ms (%.0f Hz)\n", meta.IntervalMS(), meta.Frequency())
	fmt.Printf("  Detection:  %v\n", meta.HasObjectDetection())
	fmt.Printf("  Anomaly:    %v (visual %v)\n", meta.HasAnomaly(), meta.HasVisualAnomaly())
	if len(meta.Unresolved) > 0 {
		fmt.Printf("  Unresolved: %d constants\n", len(meta.Unresolved))
	}
}

func runClean(args []string) {
	dir := modelDirArg(args)
	if err := build.Clean(dir); err != nil {
		log.WithError(err).Fatal("Clean failed")
	}
	log.WithField("dir", filepath.Clean(dir)).Info("Model tree cleaned")
}

// signalContext cancels on SIGINT or SIGTERM so a half-finished cmake
// run is killed rather than orphaned.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx
}
