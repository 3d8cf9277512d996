package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harvest-labs/harvest/internal/archive"
	"github.com/harvest-labs/harvest/internal/branding"
	"github.com/harvest-labs/harvest/internal/config"
	"github.com/harvest-labs/harvest/internal/metadata"
	"github.com/harvest-labs/harvest/internal/naming"
	"github.com/harvest-labs/harvest/internal/platform"
	"github.com/harvest-labs/harvest/internal/rename"
	"github.com/harvest-labs/harvest/internal/runtime"
)

// validate checks the name and that the project directory is free. It
// touches nothing on disk.
func (b *Bootstrapper) validate(ctx context.Context, r *run) error {
	name := r.req.Name

	err := naming.Check(ctx, b.resolver, name)
	switch {
	case errors.Is(err, naming.ErrInvalidName):
		return userError(StepValidate, err,
			"The project name '%s' must be a valid Python identifier.", name)
	case errors.Is(err, naming.ErrNameConflict):
		return userError(StepValidate, err,
			"The project name '%s' conflicts with an existing Python module. Please choose another name.", name)
	case err != nil:
		// An unanswerable lookup counts as "not bound".
		r.logger.Warn().Err(err).Msg("Module namespace lookup failed, treating name as free")
	}

	return checkProjectAbsent(r)
}

func checkProjectAbsent(r *run) error {
	if _, err := os.Stat(r.paths.Project); err == nil {
		return userError(StepValidate, nil, "Project directory %s already exists", r.paths.Project)
	} else if !errors.Is(err, os.ErrNotExist) {
		return failure(ExternalTool, StepValidate, err, "checking project directory")
	}
	return nil
}

// trace echoes a file operation the way the runner echoes commands.
func (b *Bootstrapper) trace(r *run, format string, args ...interface{}) {
	if !r.policy.HideRunning {
		b.printer.Running(fmt.Sprintf(format, args...))
	}
}

func (b *Bootstrapper) provisionEnv(ctx context.Context, r *run) error {
	env, err := runtime.NewEnvironment(r.paths.Env)
	if err != nil {
		return failure(ExternalTool, StepProvisionEnv, err, "preparing environment")
	}
	if err := env.Provision(ctx, b.runner, config.Fields(b.settings.EnvCommand), r.policy); err != nil {
		return failure(ExternalTool, StepProvisionEnv, err, "environment setup failed")
	}
	r.env = env
	r.logger.Info().Str("env", env.Dir).Msg("Environment created")
	return nil
}

// materialize downloads (or reuses) the archive, unpacks it as the project
// directory and reads the template's package name.
func (b *Bootstrapper) materialize(ctx context.Context, r *run) error {
	if err := os.MkdirAll(r.paths.Work, 0755); err != nil {
		return failure(ExternalTool, StepMaterialize, err, "creating %s", r.paths.Work)
	}

	opts := []archive.Option{
		archive.WithHTTPClient(b.httpClient),
		archive.WithUserAgent(branding.CLIName() + "/" + r.version),
		archive.WithDownloadHook(func(url string) {
			b.printer.Success("- Downloading Harvest @ %s", r.version)
			b.trace(r, "download %s", url)
			r.logger.Info().Str("url", url).Msg("Downloading template archive")
		}),
	}
	if !r.policy.HideStdout {
		opts = append(opts, archive.WithProgress(b.printer.Writer()))
	}
	acquirer := archive.New(b.settings.ArchiveURL, b.settings.ArchiveName, opts...)

	var confirm archive.Confirmer
	if r.req.AllowInput {
		confirm = b.prompter
	}
	acquired, err := acquirer.Acquire(ctx, r.paths.Work, r.version, confirm)
	if err != nil {
		return failure(ExternalTool, StepMaterialize, err, "fetching template %s", r.version)
	}
	r.result.Downloaded = acquired.Downloaded
	r.paths.Archive = acquired.Path

	root, err := archive.TemplateRoot(acquired.Path)
	if err != nil {
		return failure(ExternalTool, StepMaterialize, err, "reading %s", filepath.Base(acquired.Path))
	}
	r.paths.TemplateRoot = filepath.Join(r.paths.Work, root)
	if !archive.IsRelease(archive.VersionFromRoot(root)) {
		r.logger.Warn().Str("root", root).Msg("Template is not a tagged release")
	}

	if _, err := os.Stat(r.paths.TemplateRoot); err == nil {
		b.trace(r, "rm -rf %s", r.paths.TemplateRoot)
	}
	if err := os.RemoveAll(r.paths.TemplateRoot); err != nil {
		return failure(ExternalTool, StepMaterialize, err, "removing stale %s", root)
	}

	var out io.Writer
	if !r.policy.HideStdout {
		out = b.printer.Writer()
	}
	b.trace(r, "unzip %s", acquired.Path)
	if err := archive.Extract(acquired.Path, r.paths.Work, out); err != nil {
		return failure(ExternalTool, StepMaterialize, err, "extracting %s", filepath.Base(acquired.Path))
	}
	b.trace(r, "rm %s", acquired.Path)
	if err := os.Remove(acquired.Path); err != nil {
		return failure(ExternalTool, StepMaterialize, err, "removing archive")
	}
	b.trace(r, "mv %s %s", r.paths.TemplateRoot, r.paths.Project)
	if err := os.Rename(r.paths.TemplateRoot, r.paths.Project); err != nil {
		return failure(ExternalTool, StepMaterialize, err, "moving %s to %s", root, r.req.Name)
	}

	meta, err := metadata.Load(filepath.Join(r.paths.Project, b.settings.MetadataPath), b.settings.MetadataSection)
	if err != nil {
		return failure(Metadata, StepMaterialize, err, "reading template metadata")
	}
	pkg, err := meta.Package()
	if err != nil {
		return failure(Metadata, StepMaterialize, err, "reading template metadata")
	}
	r.meta = meta
	r.template = pkg
	return nil
}

// renamePackage rewrites the template package to the project name and records the
// result in the metadata file.
func (b *Bootstrapper) renamePackage(_ context.Context, r *run) error {
	name := r.req.Name

	if r.template != name {
		stats, err := rename.FindReplace(r.paths.Project, r.template, name)
		if err != nil {
			return failure(ExternalTool, StepRename, err, "replacing %s with %s", r.template, name)
		}
		r.logger.Debug().Int("scanned", stats.Scanned).Int("modified", stats.Modified).Msg("Package references rewritten")
	}
	if r.template != name {
		b.trace(r, "mv %s %s", filepath.Join(r.paths.Project, r.template), filepath.Join(r.paths.Project, name))
	}
	if err := rename.RenamePackage(r.paths.Project, r.template, name); err != nil {
		return failure(ExternalTool, StepRename, err, "renaming package")
	}

	r.meta.SetPackage(name)
	r.meta.SetVersion(archive.VersionFromRoot(filepath.Base(r.paths.TemplateRoot)))
	if err := r.meta.Save(); err != nil {
		return failure(Metadata, StepRename, err, "writing template metadata")
	}

	script := filepath.Join(r.paths.Project, filepath.FromSlash(b.settings.ManageScript))
	changed, err := platform.MakeExecutable(script)
	if err != nil {
		return failure(ExternalTool, StepRename, err, "making %s executable", b.settings.ManageScript)
	}
	if !changed {
		r.logger.Debug().Str("script", script).Msg("Management script not present")
	}
	return nil
}

func (b *Bootstrapper) installDeps(ctx context.Context, r *run) error {
	b.printer.Success("- Downloading and installing dependencies")
	return b.runCommand(ctx, r, StepInstallDeps, config.Fields(b.settings.InstallCommand),
		runtime.Policy{HideRunning: true})
}

func (b *Bootstrapper) collectStatic(ctx context.Context, r *run) error {
	b.printer.Success("- Collecting static files")
	return b.runCommand(ctx, r, StepCollectStatic, config.Fields(b.settings.CollectCommand), r.policy)
}

// initDB keeps stdout visible when input is allowed so the tool's prompts
// can be answered.
func (b *Bootstrapper) initDB(ctx context.Context, r *run) error {
	b.printer.Success("- Setting up a SQLite database")
	argv := config.Fields(b.settings.DatabaseCommand)
	if !r.req.AllowInput {
		argv = append(argv, config.Fields(b.settings.NoInputFlag)...)
	}
	return b.runCommand(ctx, r, StepInitDB, argv,
		runtime.Policy{HideRunning: true, HideStdout: !r.req.AllowInput})
}

// runCommand runs argv in the project directory inside the environment, if
// one was created.
func (b *Bootstrapper) runCommand(ctx context.Context, r *run, step Step, argv []string, policy runtime.Policy) error {
	if len(argv) == 0 {
		return failure(ExternalTool, step, nil, "no command configured for %s", step)
	}
	cmd := runtime.Command{
		Name: argv[0],
		Args: argv[1:],
		Dir:  r.paths.Project,
		Env:  r.env.Environ(b.environ),
	}
	if err := b.runner.Run(ctx, cmd, policy); err != nil {
		return failure(ExternalTool, step, err, "%s failed", cmd.String())
	}
	return nil
}

func (b *Bootstrapper) printInstructions(r *run) {
	p := b.printer
	name := r.req.Name

	p.Success("\nComplete! Copy and paste the following in your shell:\n")
	if r.req.CreateEnv {
		p.Success("cd %s/%s\nsource ../bin/activate", EnvDirName(name), name)
	} else {
		p.Success("cd %s", name)
	}
	p.Success("%s", b.settings.RunServerCommand)
	p.Success("\nOpen up a web browser and go to: %s\n", b.settings.ServerURL)
}
