// forgegen turns tool specs into checked-in wrapper artifacts and gates
// the result: generate renders the artifact set, validate re-derives every
// loaded tool and diffs it against its manifest.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nlatta/caseforge/internal/domain/alignment"
	"github.com/nlatta/caseforge/internal/domain/generator"
	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/tool/gen"
	"github.com/nlatta/caseforge/internal/domain/toolspec"
	"github.com/nlatta/caseforge/internal/infra/config"
	"github.com/nlatta/caseforge/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("forgegen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	cfg := config.Load()
	switch fs.Arg(0) {
	case "generate":
		return generate(cfg, out)
	case "validate":
		return validate(cfg, out)
	default:
		printHelp(out)
		return 2
	}
}

func loadSpecs(cfg config.Config) ([]toolspec.Spec, error) {
	if cfg.SpecDir != "" {
		return toolspec.LoadDir(cfg.SpecDir)
	}
	return toolspec.LoadEmbedded()
}

func bootstrapOps() (*operation.Registry, error) {
	ops := operation.NewRegistry()
	if err := operation.BootstrapInventory(ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func generate(cfg config.Config, out io.Writer) int {
	specs, err := loadSpecs(cfg)
	if err != nil {
		fmt.Fprintf(out, "ERROR loading specs: %v\n", err) //nolint:errcheck
		return 1
	}
	ops, err := bootstrapOps()
	if err != nil {
		fmt.Fprintf(out, "ERROR bootstrapping operations: %v\n", err) //nolint:errcheck
		return 1
	}

	res, err := generator.New(ops).Generate(specs)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err) //nolint:errcheck
		for _, p := range res.Problems {
			fmt.Fprintf(out, "  %s\n", p) //nolint:errcheck
		}
		return 1
	}

	if err := generator.WriteFiles(cfg.ArtifactDir, res.Files); err != nil {
		fmt.Fprintf(out, "ERROR writing artifacts: %v\n", err) //nolint:errcheck
		return 1
	}
	fmt.Fprintf(out, "generated %d files from %d specs into %s\n", len(res.Files), len(specs), cfg.ArtifactDir) //nolint:errcheck
	return 0
}

func validate(cfg config.Config, out io.Writer) int {
	specs, err := loadSpecs(cfg)
	if err != nil {
		fmt.Fprintf(out, "ERROR loading specs: %v\n", err) //nolint:errcheck
		return 1
	}
	ops, err := bootstrapOps()
	if err != nil {
		fmt.Fprintf(out, "ERROR bootstrapping operations: %v\n", err) //nolint:errcheck
		return 1
	}
	manifests, err := alignment.LoadManifests(filepath.Join(cfg.ArtifactDir, "manifests"))
	if err != nil {
		fmt.Fprintf(out, "ERROR loading manifests: %v\n", err) //nolint:errcheck
		return 1
	}

	defs := gen.Definitions()
	report := alignment.New(ops).ScanAll(defs, specs, manifests)

	fmt.Fprintf(out, "=== Tool Alignment Report ===\n")                           //nolint:errcheck
	fmt.Fprintf(out, "Tools scanned: %d\n", len(defs))                            //nolint:errcheck
	fmt.Fprintf(out, "Specs loaded: %d\n", len(specs))                            //nolint:errcheck
	fmt.Fprintf(out, "Errors: %d\n", report.Count(alignment.SeverityError))       //nolint:errcheck
	fmt.Fprintf(out, "Warnings: %d\n\n", report.Count(alignment.SeverityWarning)) //nolint:errcheck
	for _, f := range report.Findings {
		fmt.Fprintf(out, "%s\n", f) //nolint:errcheck
	}

	if !report.Pass() {
		fmt.Fprintf(out, "\nFAILED: %d alignment errors found\n", report.Count(alignment.SeverityError)) //nolint:errcheck
		return 1
	}
	fmt.Fprintln(out, "\nPASSED: every tool aligns with its operation and manifest") //nolint:errcheck
	return 0
}

func printHelp(out io.Writer) {
	helpText := `forgegen - tool wrapper generator and alignment gate

Usage:
  forgegen [options] <command>

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  generate     Render tool artifacts from specs into the artifact directory
  validate     Re-derive every loaded tool and diff against its manifest

Environment:
  CASEFORGE_SPEC_DIR       Spec directory (default: embedded specs)
  CASEFORGE_ARTIFACT_DIR   Artifact directory (default: internal/domain/tool/gen)

Examples:
  forgegen generate
  forgegen validate`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
