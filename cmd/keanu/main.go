// Package main provides the keanu command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/improbable-research/keanu-sub009/internal/config"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("keanu %s\n", version)
	case "validate":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: keanu validate <config.yaml>")
			os.Exit(2)
		}
		cfg, err := config.Load(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("sampler:      proposal=%q selector=%q seed=%d\n",
			cfg.Sampler.Proposal, cfg.Sampler.Selector, cfg.Sampler.Seed)
		fmt.Printf("gradient:     algorithm=%q max_evaluations=%d\n",
			cfg.Gradient.Algorithm, cfg.Gradient.MaxEvaluations)
		fmt.Printf("non_gradient: bounds_range=%v max_evaluations=%d\n",
			cfg.NonGradient.BoundsRange, cfg.NonGradient.MaxEvaluations)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf("keanu %s - probabilistic programming for Go\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version             Show version")
	fmt.Println("  validate <file>     Check an algorithm configuration file")
}
