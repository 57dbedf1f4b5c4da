package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emergingrobotics/go-edgeimpulse/pkg/build"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/ffi"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/impulse"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/metadata"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/runner"
)

func main() {
	// Parse command line flags
	featuresPath := flag.String("features", "", "Path to raw features file (comma separated floats)")
	modelDir := flag.String("model", "model", "Path to the extracted model tree")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if *featuresPath == "" {
		fmt.Println("Usage: eirun -features <path-to-features> [-model model] [-v]")
		os.Exit(1)
	}

	// Step 1: Parse model metadata
	fmt.Println("=== Step 1: Parsing Model Metadata ===")
	meta, err := metadata.ParseFile(build.MetadataHeaderPath(*modelDir))
	if err != nil {
		log.Fatalf("Failed to parse metadata: %v", err)
	}
	fmt.Printf("Project: %s (id %d, deploy v%d)\n",
		meta.ProjectName(), meta.ProjectID(), meta.DeployVersion())
	fmt.Printf("Sensor: %s\n", meta.SensorType())
	fmt.Printf("Input features: %d\n", meta.InputFeaturesCount())
	fmt.Printf("Labels: %d\n", meta.LabelCount())
	if len(meta.Unresolved) > 0 && *verbose {
		for _, def := range meta.Unresolved {
			fmt.Printf("  unresolved: %s = %s\n", def.Name, def.Raw)
		}
	}

	// Step 2: Load features
	fmt.Println("\n=== Step 2: Loading Features ===")
	features, err := loadFeatures(*featuresPath)
	if err != nil {
		log.Fatalf("Failed to load features: %v", err)
	}
	fmt.Printf("Loaded %d features from %s\n", len(features), *featuresPath)

	// Step 3: Initialize the classifier
	fmt.Println("\n=== Step 3: Initializing Classifier ===")
	engine, err := ffi.NewEngine()
	if errors.Is(err, ffi.ErrNativeUnavailable) {
		log.Fatalf("No native engine: %v", err)
	} else if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	handle, err := impulse.NewHandle(engine)
	if err != nil {
		log.Fatalf("Failed to create handle: %v", err)
	}
	model, err := runner.NewModel(handle, meta, runner.WithDebug(*verbose))
	if err != nil {
		log.Fatalf("Failed to initialize model: %v", err)
	}
	defer handle.Deinit()

	for _, block := range handle.Blocks() {
		fmt.Printf("Block %d: %s\n", block.ID, block.Type)
	}

	// Step 4: Run inference
	fmt.Println("\n=== Step 4: Running Inference ===")
	start := time.Now()
	resp, err := model.Infer(features)
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("Inference failed: %v", err)
	}
	fmt.Printf("Inference time: %.2fms\n\n", float64(elapsed.Microseconds())/1000.0)

	switch res := resp.Result.(type) {
	case runner.ObjectDetectionResult:
		fmt.Printf("Detected %d object(s):\n", len(res.BoundingBoxes))
		for i, box := range res.BoundingBoxes {
			fmt.Printf("  [%d] %s\n", i, box)
		}
	case runner.VisualAnomalyResult:
		fmt.Printf("Anomaly: %.4f (max %.4f, mean %.4f, %d grid cells)\n",
			res.Anomaly, res.Max, res.Mean, len(res.Grid))
	case runner.ClassificationResult:
		fmt.Println("Classification:")
		for label, value := range res.Classification {
			fmt.Printf("  %-16s %.4f\n", label, value)
		}
	}
}

// loadFeatures reads a Studio-style raw features dump: floats separated
// by commas or whitespace.
func loadFeatures(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fields := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	features := make([]float32, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, fmt.Errorf("bad feature value %q: %w", field, err)
		}
		features = append(features, float32(v))
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("no features in %s", path)
	}
	return features, nil
}
