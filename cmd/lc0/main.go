// Package main provides the lc0 inference-core CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jasonlats/lc0/backend/cpu"
	"github.com/jasonlats/lc0/backend/webgpu"
	"github.com/jasonlats/lc0/network"
	"github.com/jasonlats/lc0/tensor"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("lc0 inference core %s\n", version)
			return
		case "backends":
			listBackends()
			return
		case "bench":
			if err := bench(); err != nil {
				fmt.Fprintf(os.Stderr, "bench: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("lc0 inference core - residual-tower position evaluation")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version     Show version")
	fmt.Println("  backends    List available compute backends")
	fmt.Println("  bench       Time a forward pass on a synthetic network")
}

func listBackends() {
	fmt.Printf("  %s\n", cpu.New().Name())
	if webgpu.IsAvailable() {
		if be, err := webgpu.New(); err == nil {
			fmt.Printf("  %s\n", be.Name())
			be.Release()
			return
		}
	}
	fmt.Println("  WebGPU (unavailable)")
}

// bench runs batched forward passes of a small tower with synthetic weights
// and reports evaluations per second.
func bench() error {
	cfg := network.Config{
		InputPlanes: 18, Filters: 64, Blocks: 6, SEChannels: 8,
		PolicyChannels: 32, PolicyOutputs: 1858,
		ValueChannels: 32, ValueFCSize: 128,
		MaxBatch: 16,
	}
	nw, err := network.New[float32](cfg, syntheticWeights(cfg), cpu.New(), cpu.New())
	if err != nil {
		return err
	}

	const batch = 16
	board := 8 * 8
	input := tensor.NewBuffer(batch*cfg.InputPlanes*board, tensor.Float32)
	in := tensor.As[float32](input)
	for i := range in {
		in[i] = float32(i%17) / 17
	}
	policy := tensor.NewBuffer(batch*cfg.PolicyOutputs, tensor.Float32)
	value := tensor.NewBuffer(batch, tensor.Float32)

	const rounds = 8
	start := time.Now()
	for r := 0; r < rounds; r++ {
		if err := nw.Forward(batch, input, policy, value); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("%d evaluations in %v (%.1f evals/s)\n",
		rounds*batch, elapsed, float64(rounds*batch)/elapsed.Seconds())
	return nil
}

func syntheticWeights(cfg network.Config) *network.Weights {
	seed := uint32(12345)
	next := func() float32 {
		seed = seed*1664525 + 1013904223
		return float32(seed%2000)/20000 - 0.05
	}
	arr := func(n int) []float32 {
		out := make([]float32, n)
		for i := range out {
			out[i] = next()
		}
		return out
	}
	ones := func(n int) []float32 {
		out := make([]float32, n)
		for i := range out {
			out[i] = 1
		}
		return out
	}
	convBlock := func(cOut, cIn, k int) network.ConvBlockWeights {
		return network.ConvBlockWeights{
			Filter:      arr(cOut * cIn * k * k),
			BNMeans:     arr(cOut),
			BNVariances: ones(cOut),
		}
	}

	board := 8 * 8
	w := &network.Weights{Input: convBlock(cfg.Filters, cfg.InputPlanes, 3)}
	for i := 0; i < cfg.Blocks; i++ {
		w.Residual = append(w.Residual, network.ResidualWeights{
			Conv1: convBlock(cfg.Filters, cfg.Filters, 3),
			Conv2: convBlock(cfg.Filters, cfg.Filters, 3),
			SE: network.SEWeights{
				W1: arr(cfg.SEChannels * cfg.Filters),
				B1: arr(cfg.SEChannels),
				W2: arr(2 * cfg.Filters * cfg.SEChannels),
				B2: arr(2 * cfg.Filters),
			},
		})
	}
	w.Policy = network.PolicyHeadWeights{
		Conv: convBlock(cfg.PolicyChannels, cfg.Filters, 1),
		FCW:  arr(cfg.PolicyOutputs * cfg.PolicyChannels * board),
		FCB:  arr(cfg.PolicyOutputs),
	}
	w.Value = network.ValueHeadWeights{
		Conv: convBlock(cfg.ValueChannels, cfg.Filters, 1),
		FC1W: arr(cfg.ValueFCSize * cfg.ValueChannels * board),
		FC1B: arr(cfg.ValueFCSize),
		FC2W: arr(cfg.ValueFCSize),
		FC2B: arr(1),
	}
	return w
}
