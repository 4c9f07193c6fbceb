// Package pipeline drives a run: write inspection records, convert them to
// templates and move the templates where dockerMan looks for them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ngenohkevin/unraid-templates/config"
	"github.com/ngenohkevin/unraid-templates/internal/files"
	"github.com/ngenohkevin/unraid-templates/internal/runtime"
	"github.com/ngenohkevin/unraid-templates/internal/template"
)

// ErrInputDirMissing stops a run before anything is written or converted
var ErrInputDirMissing = errors.New("invalid folder path")

// Options are the decisions taken before a run starts
type Options struct {
	GenerateRunning bool
	GenerateStopped bool
	InputDir        string
	ConvertAll      bool
	Relocate        bool
	TemplatesDir    string
	Overwrite       bool
}

// OptionsFromConfig copies the run decisions out of cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		GenerateRunning: cfg.GenerateRunning,
		GenerateStopped: cfg.GenerateStopped,
		InputDir:        cfg.InputDir,
		ConvertAll:      cfg.ConvertAll,
		Relocate:        cfg.Relocate,
		TemplatesDir:    cfg.TemplatesDir,
		Overwrite:       cfg.Overwrite,
	}
}

// Summary counts what happened to the documents of one run
type Summary struct {
	Generated int
	Found     int
	Valid     int
	Converted int
	Relocated int
}

// Print writes the end-of-run report
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Inspection records written: %d\n", s.Generated)
	fmt.Fprintf(w, "Total JSON files found: %d\n", s.Found)
	fmt.Fprintf(w, "Valid JSON files: %d\n", s.Valid)
	fmt.Fprintf(w, "Valid XML files created: %d\n", s.Converted)
	fmt.Fprintf(w, "XML files moved to templates folder: %d\n", s.Relocated)
}

// Pipeline runs the stages strictly in order, one item at a time
type Pipeline struct {
	opts      Options
	enum      *runtime.Enumerator
	inspector *runtime.Inspector
	store     *files.Store
	log       *slog.Logger
}

// New creates a pipeline over the given runtime
func New(opts Options, rt runtime.Runtime, log *slog.Logger) *Pipeline {
	return &Pipeline{
		opts:      opts,
		enum:      runtime.NewEnumerator(rt, log),
		inspector: runtime.NewInspector(rt, log),
		store:     files.NewStore(opts.InputDir, opts.TemplatesDir),
		log:       log,
	}
}

// Run executes every enabled stage. Per-item failures are logged and the
// item is dropped from later stages; only a missing input directory is fatal.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	if !files.DirExists(p.opts.InputDir) {
		p.log.Error("Invalid folder path. Exiting.", "dir", p.opts.InputDir)
		return summary, fmt.Errorf("%w: %s", ErrInputDirMissing, p.opts.InputDir)
	}

	if p.opts.GenerateRunning {
		summary.Generated += p.generate(ctx, "running", p.enum.Running(ctx))
	}
	if p.opts.GenerateStopped {
		summary.Generated += p.generate(ctx, "non-running", p.enum.NonRunning(ctx))
	}

	records, err := p.store.ListJSON(p.opts.InputDir)
	if err != nil {
		p.log.Error("Failed to list JSON files", "dir", p.opts.InputDir, "err", err)
	}
	summary.Found = len(records)
	p.log.Info("Total JSON files found", "count", summary.Found, "dir", p.opts.InputDir)
	for _, path := range records {
		p.log.Info("JSON file", "file", filepath.Base(path))
	}

	valid := p.validate(records)
	summary.Valid = len(valid)

	if !p.opts.ConvertAll || len(valid) == 0 {
		return summary, nil
	}

	templates := p.convert(valid)
	summary.Converted = len(templates)

	if p.opts.Relocate {
		summary.Relocated = p.relocate(templates)
	}

	return summary, nil
}

// generate writes <name>.json into the input directory for each container
func (p *Pipeline) generate(ctx context.Context, kind string, names []string) int {
	p.log.Info("Containers", "kind", kind, "count", len(names))
	for _, name := range names {
		p.log.Info("Container", "kind", kind, "name", name)
	}

	written := 0
	for _, name := range names {
		record, ok := p.inspector.Inspect(ctx, name)
		if !ok {
			continue
		}
		path := filepath.Join(p.opts.InputDir, name+".json")
		if err := p.store.WriteFile(path, record); err != nil {
			p.log.Error("Failed to write JSON file", "container", name, "err", err)
			continue
		}
		p.log.Info("Created JSON file", "container", name, "file", path)
		written++
	}
	return written
}

func (p *Pipeline) validate(paths []string) []string {
	var valid []string
	for _, path := range paths {
		data, err := p.store.ReadFile(path)
		if err != nil || !template.ValidateInput(data) {
			p.log.Warn("Invalid JSON file", "file", filepath.Base(path))
			continue
		}
		valid = append(valid, path)
	}
	return valid
}

// convert writes <name>.xml next to each record and keeps the ones that parse
func (p *Pipeline) convert(paths []string) []string {
	var created []string
	for _, path := range paths {
		xmlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".xml"

		data, err := p.store.ReadFile(path)
		if err != nil {
			p.log.Error("Failed to read JSON file", "file", path, "err", err)
			continue
		}

		out, warnings, err := template.ConvertBytes(data)
		for _, w := range warnings {
			p.log.Warn(w.Reason, "entry", w.Entry, "file", filepath.Base(path))
		}
		if err != nil {
			p.log.Error("Failed to convert JSON file", "file", path, "err", err)
			continue
		}

		if err := p.store.WriteFile(xmlPath, out); err != nil {
			p.log.Error("Failed to write XML file", "file", xmlPath, "err", err)
			continue
		}
		p.log.Info("XML file created", "file", xmlPath)

		if !template.ValidateOutput(xmlPath) {
			p.log.Error("Invalid XML created", "file", xmlPath)
			continue
		}
		p.log.Info("Valid XML created", "file", xmlPath)
		created = append(created, xmlPath)
	}
	return created
}

func (p *Pipeline) relocate(paths []string) int {
	moved := 0
	for _, path := range paths {
		dst, err := p.store.Move(path, p.opts.TemplatesDir, p.opts.Overwrite)
		if err != nil {
			p.log.Error("Failed to move XML file", "file", path, "err", err)
			continue
		}
		p.log.Info("Moved XML file", "file", path, "to", dst)
		moved++
	}
	return moved
}
