// Command recover rebuilds a corrupted ARM disassembly: it ingests a
// disassembly text file and a corruption descriptor, collects neighbourhood
// metadata, builds the approximate CFG, runs the probabilistic recuperator
// to a fixpoint, then the forward-constraint enumerator over whatever
// candidates survive, and writes a ranked binary solution plus human
// reports.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/marcef-go/armrecover/candidate"
	"github.com/marcef-go/armrecover/cfg"
	"github.com/marcef-go/armrecover/ingest"
	"github.com/marcef-go/armrecover/metadata"
	"github.com/marcef-go/armrecover/program"
	"github.com/marcef-go/armrecover/recuperate"
	"github.com/marcef-go/armrecover/report"
	"github.com/marcef-go/armrecover/solve"
	"github.com/urfave/cli"
)

func main() {
	log.SetFlags(0)

	app := cli.NewApp()
	app.Name = "recover"
	app.Usage = "recover lost ARM instructions from a corrupted disassembly"
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "recover",
			Usage:     "recover a corrupted disassembly",
			ArgsUsage: "<disassembly.txt> <corruption-spec>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "out", Value: "solution.bin", Usage: "path to write the binary solution"},
				cli.StringFlag{Name: "report", Value: "", Usage: "directory to write pass/quality reports (omit to skip)"},
				cli.StringFlag{Name: "model", Value: "", Usage: "path to a JSON probabilistic_model override"},
				cli.IntFlag{Name: "max-passes", Value: 0, Usage: "bound on recuperator passes (0 = unbounded)"},
				cli.IntFlag{Name: "max-solutions", Value: 0, Usage: "bound on enumerated solutions (0 = unbounded)"},
			},
			Action: runRecover,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runRecover(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return cli.NewExitError("usage: recover <disassembly.txt> <corruption-spec>", 2)
	}
	disassemblyPath, corruptionPath := args[0], args[1]

	prog, err := ingest.ReadDisassemblyFile(disassemblyPath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("input error: %v", err), 2)
	}

	corruptionFile, err := os.Open(corruptionPath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("input error: %v", err), 2)
	}
	defer corruptionFile.Close()
	corruptor, err := ingest.ReadCorruptionSpec(corruptionFile)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("input error: %v", err), 2)
	}

	model := recuperate.DefaultProbabilisticModel()
	if modelPath := c.String("model"); modelPath != "" {
		if err := loadModelOverride(modelPath, &model); err != nil {
			return cli.NewExitError(fmt.Sprintf("input error: %v", err), 2)
		}
	}

	store := corruptor.Corrupt(prog)
	corruptedCount := 0
	for _, addr := range store.Addresses() {
		if store.IsCorrupted(addr) {
			corruptedCount++
		}
	}
	log.Printf("[info] ingested %d instructions, %d corrupted", len(prog.Instructions), corruptedCount)

	md := metadata.Collect(prog, store, metadata.DefaultWindow)
	graph := cfg.Build(prog)
	ctx := recuperate.NewContext(store, md, prog, graph)

	recuperator := recuperate.NewRecuperator(model)
	recuperator.MaxPasses = c.Int("max-passes")
	passes, err := recuperator.Run(ctx)
	log.Printf("[info] recuperator stopped after %d pass(es)", passes)

	unstable := false
	if err != nil {
		unstable = true
		log.Printf("[warn] %v", err)
	}

	enumerator := &solve.Enumerator{
		Program:      prog,
		Store:        store,
		Graph:        graph,
		MaxSolutions: c.Int("max-solutions"),
	}
	result := enumerator.Build()
	if result.Soft {
		log.Printf("[warn] no assignment survived every constraint; falling back to a soft, per-address best-scored solution")
	}
	log.Printf("[info] solution_size=%d", result.SolutionSize)

	if reportDir := c.String("report"); reportDir != "" {
		if err := writeReports(reportDir, prog, store, result); err != nil {
			return cli.NewExitError(fmt.Sprintf("input error: %v", err), 2)
		}
	}

	outPath := c.String("out")
	outFile, err := os.Create(outPath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("input error: %v", err), 2)
	}
	defer outFile.Close()
	if err := report.WriteSolution(outFile, result.Solution); err != nil {
		return cli.NewExitError(fmt.Sprintf("input error: %v", err), 2)
	}

	switch {
	case unstable:
		return cli.NewExitError("recuperator did not reach a stable fixpoint", 1)
	case result.SolutionSize >= 1:
		return nil
	default:
		return cli.NewExitError("no solution found", 1)
	}
}

func loadModelOverride(path string, model *recuperate.ProbabilisticModel) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading model override: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(model); err != nil {
		return fmt.Errorf("decoding model override: %w", err)
	}
	return nil
}

func writeReports(dir string, prog *program.Program, store *candidate.Store, result *solve.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	passFile, err := os.Create(filepath.Join(dir, "pass_report.txt"))
	if err != nil {
		return fmt.Errorf("creating pass report: %w", err)
	}
	defer passFile.Close()
	if err := report.WritePassReport(passFile, prog, store); err != nil {
		return fmt.Errorf("writing pass report: %w", err)
	}

	qualityFile, err := os.Create(filepath.Join(dir, "quality_report.txt"))
	if err != nil {
		return fmt.Errorf("creating quality report: %w", err)
	}
	defer qualityFile.Close()
	report.Measure(prog, store).Report(qualityFile)

	log.Printf("[info] wrote reports to %s (solution_size=%d)", dir, result.SolutionSize)
	return nil
}
