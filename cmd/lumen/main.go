// Package main provides the Lumen model converter CLI.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lumen-ml/lumen/internal/serialization"
	"github.com/lumen-ml/lumen/keras"
	"github.com/lumen-ml/lumen/relay"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("Lumen %s\n", version)
	case "convert":
		handleConvert()
	case "inspect":
		handleInspect()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Lumen - Keras to relay IR converter")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  convert    Convert a model architecture (and optional weights) to relay IR")
	fmt.Println("  inspect    Print the layer graph of a model architecture file")
	fmt.Println("  version    Show version")
}

func handleConvert() {
	cmd := flag.NewFlagSet("convert", flag.ExitOnError)
	weightsFile := cmd.String("weights", "", "SafeTensors weight file matching the architecture (optional)")
	outFile := cmd.String("output", "", "Path for the printed IR; stdout when omitted")
	paramsFile := cmd.String("params", "", "Path for the extracted parameters as SafeTensors (optional)")

	if err := cmd.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags for convert command: %v\n", err)
		os.Exit(1)
	}
	modelFile := cmd.Arg(0)
	if modelFile == "" {
		fmt.Println("Error: model architecture JSON file is required for 'convert'.")
		cmd.Usage()
		os.Exit(1)
	}

	model, err := keras.LoadFile(modelFile)
	if err != nil {
		fatal(err)
	}
	if *weightsFile != "" {
		if err := keras.LoadWeightsFile(model, *weightsFile); err != nil {
			fatal(err)
		}
	}

	fn, params, err := keras.Convert(model, nil)
	if err != nil {
		fatal(err)
	}

	text := relay.PrintFunction(fn)
	if *outFile == "" {
		fmt.Print(text)
	} else if err := os.WriteFile(*outFile, []byte(text), 0o644); err != nil {
		fatal(err)
	}

	if *paramsFile != "" {
		tensors := make(map[string]serialization.NamedTensor, len(params))
		for name, arr := range params {
			tensors[name] = serialization.NamedTensor{Shape: arr.Shape(), Data: arr.Data()}
		}
		metadata := map[string]string{"format": "lumen", "source": modelFile}
		if err := serialization.WriteFile(*paramsFile, tensors, metadata); err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d parameters to %s\n", len(params), *paramsFile)
	}
}

func handleInspect() {
	cmd := flag.NewFlagSet("inspect", flag.ExitOnError)
	if err := cmd.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags for inspect command: %v\n", err)
		os.Exit(1)
	}
	modelFile := cmd.Arg(0)
	if modelFile == "" {
		fmt.Println("Error: model architecture JSON file is required for 'inspect'.")
		cmd.Usage()
		os.Exit(1)
	}

	model, err := keras.LoadFile(modelFile)
	if err != nil {
		fatal(err)
	}
	if err := model.InferShapes(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: shape inference failed: %v\n", err)
	}

	fmt.Printf("Model: %s (%d layers)\n", model.Name, len(model.Layers))
	for _, layer := range model.Layers {
		fmt.Printf("  %-24s %-20s in=%v out=%v\n", layer.Name, layer.Kind, layer.InputShape, layer.OutputShape)
		for nodeIdx, node := range layer.InboundNodes {
			for _, e := range node.Inbound {
				fmt.Printf("    node %d <- %s (node %d, slot %d)\n", nodeIdx, e.Layer, e.NodeIndex, e.TensorIndex)
			}
		}
	}
	for _, oc := range model.Outputs {
		fmt.Printf("  output: %s (node %d, slot %d)\n", oc.Layer, oc.NodeIndex, oc.TensorIndex)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
