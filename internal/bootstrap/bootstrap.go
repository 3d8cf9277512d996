// Package bootstrap creates a new project from a versioned template: it
// validates the name, provisions an isolated environment, unpacks and renames
// the template, then runs the project's install, collect and database
// commands.
//
// Steps run strictly in order and the first failure aborts the run. Nothing
// completed before the failure is undone.
package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harvest-labs/harvest/internal/config"
	"github.com/harvest-labs/harvest/internal/lock"
	"github.com/harvest-labs/harvest/internal/logging"
	"github.com/harvest-labs/harvest/internal/metadata"
	"github.com/harvest-labs/harvest/internal/naming"
	"github.com/harvest-labs/harvest/internal/runtime"
	"github.com/harvest-labs/harvest/internal/ui"
)

// Step names a pipeline stage.
type Step string

const (
	StepValidate      Step = "validate"
	StepProvisionEnv  Step = "provision-env"
	StepMaterialize   Step = "materialize"
	StepRename        Step = "rename"
	StepInstallDeps   Step = "install-deps"
	StepCollectStatic Step = "collect-static"
	StepInitDB        Step = "init-db"
)

// Request is a parsed `harvest init` invocation.
type Request struct {
	Name            string
	TemplateVersion string
	CreateEnv       bool
	AllowInput      bool
	Verbosity       int
}

// Result describes a completed run.
type Result struct {
	RunID           string
	TemplateVersion string
	Paths           Paths
	// Steps lists every step that completed, in order.
	Steps []Step
	// Downloaded is false when a cached archive was reused.
	Downloaded bool
}

// Bootstrapper runs the project creation pipeline.
type Bootstrapper struct {
	settings   *config.Settings
	resolver   naming.NamespaceResolver
	runner     runtime.Runner
	prompter   ui.Prompter
	printer    *ui.Printer
	logger     zerolog.Logger
	httpClient *http.Client
	baseDir    string
	environ    []string
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithResolver sets the namespace resolver used for conflict checks.
func WithResolver(r naming.NamespaceResolver) Option {
	return func(b *Bootstrapper) { b.resolver = r }
}

// WithRunner sets the external command runner.
func WithRunner(r runtime.Runner) Option {
	return func(b *Bootstrapper) { b.runner = r }
}

// WithPrompter sets how yes/no questions are answered.
func WithPrompter(p ui.Prompter) Option {
	return func(b *Bootstrapper) { b.prompter = p }
}

// WithPrinter sets where progress messages go.
func WithPrinter(p *ui.Printer) Option {
	return func(b *Bootstrapper) { b.printer = p }
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bootstrapper) { b.logger = l }
}

// WithHTTPClient sets the client used to download templates.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bootstrapper) { b.httpClient = c }
}

// WithBaseDir sets the directory the project is created in. It defaults to
// the working directory.
func WithBaseDir(dir string) Option {
	return func(b *Bootstrapper) { b.baseDir = dir }
}

// WithEnviron sets the ambient process environment for external commands.
func WithEnviron(env []string) Option {
	return func(b *Bootstrapper) { b.environ = env }
}

// New creates a Bootstrapper from resolved settings.
func New(settings *config.Settings, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		settings:   settings,
		prompter:   ui.DefaultPrompter{},
		logger:     logging.Component("bootstrap"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.settings == nil {
		b.settings = config.Defaults()
	}
	if b.resolver == nil {
		b.resolver = naming.DefaultResolver(b.settings.PythonCommand)
	}
	if b.runner == nil {
		b.runner = runtime.NewExecRunner()
	}
	if b.printer == nil {
		b.printer = ui.NewPrinter(os.Stdout)
	}
	if b.environ == nil {
		b.environ = os.Environ()
	}
	return b
}

// run is the mutable state of one pipeline execution.
type run struct {
	req      Request
	version  string
	policy   runtime.Policy
	paths    Paths
	env      *runtime.Environment
	logger   zerolog.Logger
	meta     *metadata.File
	template string // package name read from the template metadata
	result   *Result
}

// Run executes the pipeline for req. The returned error is always *Error.
func (b *Bootstrapper) Run(ctx context.Context, req Request) (*Result, error) {
	base := b.baseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, failure(ExternalTool, StepValidate, err, "determining working directory")
		}
		base = wd
	}

	version := req.TemplateVersion
	if version == "" {
		version = b.settings.TemplateVersion
	}
	archiveName := config.Expand(b.settings.ArchiveName, version)
	runID := uuid.NewString()

	r := &run{
		req:     req,
		version: version,
		policy:  runtime.PolicyFor(req.Verbosity),
		paths:   ResolvePaths(base, req.Name, req.CreateEnv, archiveName),
		logger:  b.logger.With().Str("run", runID).Str("project", req.Name).Logger(),
	}
	r.result = &Result{RunID: runID, TemplateVersion: version}

	done := logging.LogOperationStart(r.logger, "bootstrap")
	defer done()

	if err := b.validate(ctx, r); err != nil {
		return r.finish(), err
	}
	r.complete(StepValidate)

	release, err := lock.NewProjectLock(base).Acquire(req.Name, runID)
	if err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) {
			return r.finish(), userError(StepValidate, err, "%v", err)
		}
		return r.finish(), failure(ExternalTool, StepValidate, err, "locking project")
	}
	defer func() {
		if err := release(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to release project lock")
		}
	}()

	// Another run may have created the directory before the lock was taken.
	if err := checkProjectAbsent(r); err != nil {
		return r.finish(), err
	}

	b.printer.Success("Setting up project '%s'...", req.Name)

	steps := []struct {
		name Step
		fn   func(context.Context, *run) error
		skip bool
	}{
		{StepProvisionEnv, b.provisionEnv, !req.CreateEnv},
		{StepMaterialize, b.materialize, false},
		{StepRename, b.renamePackage, false},
		{StepInstallDeps, b.installDeps, false},
		{StepCollectStatic, b.collectStatic, false},
		{StepInitDB, b.initDB, false},
	}
	for _, s := range steps {
		if s.skip {
			r.logger.Debug().Str("step", string(s.name)).Msg("Step skipped")
			continue
		}
		if err := ctx.Err(); err != nil {
			return r.finish(), failure(ExternalTool, s.name, err, "interrupted")
		}
		r.logger.Info().Str("step", string(s.name)).Msg("Step started")
		if err := s.fn(ctx, r); err != nil {
			r.logger.Error().Err(err).Str("step", string(s.name)).Msg("Step failed")
			return r.finish(), err
		}
		r.complete(s.name)
	}

	b.printInstructions(r)
	return r.finish(), nil
}

func (r *run) complete(step Step) {
	r.result.Steps = append(r.result.Steps, step)
}

func (r *run) finish() *Result {
	r.result.Paths = r.paths
	return r.result
}
