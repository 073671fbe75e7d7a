// Command famdb is the CLI entrypoint binding the query engine to
// stdin/stdout/stderr, translating internal/famerr kinds to exit codes
// and one-line stderr messages. It is a thin flag-based dispatcher: one
// flag.FlagSet per subcommand, explicit os.Exit.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/famdb/famdb/internal/famerr"
	"github.com/famdb/famdb/pkg/emit"
	"github.com/famdb/famdb/pkg/famconfig"
	"github.com/famdb/famdb/pkg/family"
	"github.com/famdb/famdb/pkg/famlog"
	"github.com/famdb/famdb/pkg/fileset"
	"github.com/famdb/famdb/pkg/query"
	"github.com/famdb/famdb/pkg/schema"
	"github.com/famdb/famdb/pkg/taxonomy"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	global := flag.NewFlagSet("famdb", flag.ContinueOnError)
	global.SetOutput(stderr)
	dir := global.String("i", "", "directory holding the FamDB file set")
	level := global.String("l", "", "log level: error|warn|info|debug")
	configPath := global.String("c", "", "optional famdb.yaml config path")

	if err := global.Parse(args); err != nil {
		return 1
	}

	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "usage: famdb -i <dir> [-l LEVEL] <info|names|lineage|family|families|append|repair> ...")
		return 1
	}

	cfg, err := famconfig.Load(*configPath)
	if err != nil {
		return reportAndExit(stderr, err)
	}
	cfg = cfg.Override(*dir, *level, "")

	opLog := famlog.NewOperational(famlog.ParseLevel(cfg.LogLevel))
	defer opLog.Sync()
	containerLog := famlog.NewContainerLogger(famlog.ParseLevel(cfg.LogLevel))

	sub, subArgs := rest[0], rest[1:]

	if cfg.Directory == "" {
		fmt.Fprintln(stderr, "famdb: -i <dir> is required")
		return 1
	}

	// repair and append take an exclusive write lock on a single
	// partition; neither opens the shared read-only Coordinator.
	switch sub {
	case "repair":
		return runRepair(subArgs, stderr, containerLog)
	case "append":
		if err := runAppend(subArgs, stdout, cfg.Directory, containerLog); err != nil {
			return reportAndExit(stderr, err)
		}
		return 0
	}

	co, err := fileset.Open(cfg.Directory, containerLog)
	if err != nil {
		return reportAndExit(stderr, err)
	}
	defer co.Close()

	for _, w := range co.Warnings() {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	engine := query.New(co, opLog)

	var runErr error
	switch sub {
	case "info":
		runErr = runInfo(subArgs, stdout, engine)
	case "names":
		runErr = runNames(subArgs, stdout, engine)
	case "lineage":
		runErr = runLineage(subArgs, stdout, engine)
	case "family":
		runErr = runFamily(subArgs, stdout, engine)
	case "families":
		runErr = runFamilies(subArgs, stdout, engine)
	default:
		fmt.Fprintf(stderr, "famdb: unknown subcommand %q\n", sub)
		return 1
	}

	if runErr != nil {
		if isBrokenPipe(runErr) {
			return 0
		}
		return reportAndExit(stderr, runErr)
	}
	return 0
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE)
}

func reportAndExit(stderr *os.File, err error) int {
	kind := famerr.KindOf(err)
	fmt.Fprintf(stderr, "famdb: %s: %v\n", kind, err)
	return kind.ExitCode()
}

func runInfo(args []string, w *os.File, engine *query.Engine) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	history := fs.Bool("history", false, "include merged change history")
	if err := fs.Parse(args); err != nil {
		return famerr.User("%w", err)
	}
	return engine.Info(w, *history)
}

func runNames(args []string, w *os.File, engine *query.Engine) error {
	fs := flag.NewFlagSet("names", flag.ContinueOnError)
	format := fs.String("f", "pretty", "pretty|json")
	if err := fs.Parse(args); err != nil {
		return famerr.User("%w", err)
	}
	if fs.NArg() == 0 {
		return famerr.User("names requires at least one term")
	}
	return engine.Names(w, taxonomy.ParseTerm(fs.Args()), *format)
}

func runLineage(args []string, w *os.File, engine *query.Engine) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	withAncestors := fs.Bool("a", false, "include ancestors")
	withDescendants := fs.Bool("d", false, "include descendants")
	includeEmpty := fs.Bool("k", false, "include taxa with no families")
	curated := fs.Bool("c", false, "count curated families only")
	uncurated := fs.Bool("u", false, "count uncurated families only")
	format := fs.String("f", "pretty", "pretty|semicolon|totals")
	if err := fs.Parse(args); err != nil {
		return famerr.User("%w", err)
	}
	if fs.NArg() == 0 {
		return famerr.User("lineage requires a term")
	}
	return engine.Lineage(w, taxonomy.ParseTerm(fs.Args()), query.LineageOptions{
		WithAncestors:   *withAncestors,
		WithDescendants: *withDescendants,
		IncludeEmpty:    *includeEmpty,
		Curated:         *curated,
		Uncurated:       *uncurated,
		Format:          *format,
	})
}

func runFamily(args []string, w *os.File, engine *query.Engine) error {
	fs := flag.NewFlagSet("family", flag.ContinueOnError)
	format := fs.String("f", emit.FormatSummary, "output format")
	species := fs.Int("species", 0, "query species taxon id, for hmm_species")
	if err := fs.Parse(args); err != nil {
		return famerr.User("%w", err)
	}
	if fs.NArg() != 1 {
		return famerr.User("family requires exactly one accession")
	}
	return engine.Family(w, fs.Arg(0), *format, *species)
}

func runFamilies(args []string, w *os.File, engine *query.Engine) error {
	fs := flag.NewFlagSet("families", flag.ContinueOnError)
	withAncestors := fs.Bool("a", false, "include ancestors")
	withDescendants := fs.Bool("d", false, "include descendants")
	stage := fs.Int("stage", 0, "filter by RepeatMasker stage")
	class := fs.String("class", "", "filter by classification prefix")
	name := fs.String("name", "", "filter by name prefix")
	curated := fs.Bool("c", false, "curated families only")
	uncurated := fs.Bool("u", false, "uncurated families only")
	format := fs.String("f", emit.FormatSummary, "output format")
	reverseComplement := fs.Bool("add-reverse-complement", false, "also emit a reverse-complement record")
	includeClassInName := fs.Bool("include-class-in-name", false, "insert #Type/SubType in FASTA headers")
	requireGeneral := fs.Bool("require-general-threshold", false, "require a non-null GA/TC/NC")
	if err := fs.Parse(args); err != nil {
		return famerr.User("%w", err)
	}
	if fs.NArg() == 0 {
		return famerr.User("families requires a term")
	}

	filters := query.Filters{
		Curated:                 *curated,
		Uncurated:               *uncurated,
		NamePrefix:              *name,
		ClassPrefix:             *class,
		RequireGeneralThreshold: *requireGeneral,
	}
	if isFlagSet(fs, "stage") {
		filters.HasStage = true
		filters.Stage = *stage
	}

	return engine.Families(w, taxonomy.ParseTerm(fs.Args()), query.FamiliesOptions{
		WithAncestors:      *withAncestors,
		WithDescendants:    *withDescendants,
		Filters:            filters,
		Format:             *format,
		ReverseComplement:  *reverseComplement,
		IncludeClassInName: *includeClassInName,
	})
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func runRepair(args []string, stderr *os.File, containerLog *logrus.Logger) int {
	fs := flag.NewFlagSet("repair", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: famdb repair <partition-file>")
		return 1
	}
	if err := schema.Repair(fs.Arg(0), containerLog); err != nil {
		return reportAndExit(stderr, err)
	}
	return 0
}

// runAppend parses an EMBL record and writes it into the file set's
// root partition, so a record emitted by the embl renderer can be
// re-ingested directly. Bulk upstream EMBL-dump ingestion remains the
// builder tool's job.
func runAppend(args []string, w *os.File, dir string, containerLog *logrus.Logger) error {
	fs := flag.NewFlagSet("append", flag.ContinueOnError)
	name := fs.String("name", "", "override the family name")
	description := fs.String("description", "", "override the family description")
	if err := fs.Parse(args); err != nil {
		return famerr.User("%w", err)
	}
	if fs.NArg() < 1 {
		return famerr.User("append requires an EMBL input file")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return famerr.IO("read %s: %w", fs.Arg(0), err)
	}

	fam, err := family.ParseEMBL(data)
	if err != nil {
		return famerr.User("parse EMBL input: %w", err)
	}
	if *name != "" {
		fam.Name = *name
	}
	if *description != "" {
		fam.Description = *description
	}

	if err := appendToPartitionZero(dir, fam, containerLog); err != nil {
		return err
	}

	fmt.Fprintf(w, "appended family %s.%d %q (%d bp) to %s\n",
		fam.Accession, fam.Version, fam.Name, fam.Length, dir)
	return nil
}

// appendToPartitionZero opens the file set's root partition for write,
// encodes the family under its accession key, and commits. On any
// failure after OpenForWrite the guard is left uncommitted on purpose:
// the next open sees an unfinished write and reports CORRUPT until an
// operator runs `famdb repair`.
func appendToPartitionZero(dir string, fam *family.Family, containerLog *logrus.Logger) error {
	rootPath, err := fileset.FindPartitionPath(dir, 0)
	if err != nil {
		return err
	}

	f, guard, err := schema.OpenForWrite(rootPath, "append "+fam.Accession, containerLog, time.Now)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := family.Encode(f.Container, fam); err != nil {
		return err
	}
	if err := family.UpdateLookups(f.Container, fam); err != nil {
		return err
	}

	return guard.Commit()
}
