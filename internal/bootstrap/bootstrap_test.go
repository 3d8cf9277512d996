package bootstrap

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvest-labs/harvest/internal/config"
	"github.com/harvest-labs/harvest/internal/lock"
	"github.com/harvest-labs/harvest/internal/metadata"
	"github.com/harvest-labs/harvest/internal/naming"
	"github.com/harvest-labs/harvest/internal/runtime"
	"github.com/harvest-labs/harvest/internal/ui"
)

// fakeRunner records commands instead of executing them.
type fakeRunner struct {
	commands []runtime.Command
	policies []runtime.Policy
	failOn   string
}

func (f *fakeRunner) Run(_ context.Context, c runtime.Command, p runtime.Policy) error {
	f.commands = append(f.commands, c)
	f.policies = append(f.policies, p)
	if f.failOn != "" && c.Name == f.failOn {
		return &runtime.ExitError{Command: c.String(), ExitCode: 2}
	}
	return nil
}

func (f *fakeRunner) lines() []string {
	out := make([]string, len(f.commands))
	for i, c := range f.commands {
		out[i] = c.String()
	}
	return out
}

type cannedPrompter struct {
	answer bool
	asked  []string
}

func (p *cannedPrompter) Confirm(q string, _ bool) (bool, error) {
	p.asked = append(p.asked, q)
	return p.answer, nil
}

type templateFile struct {
	name string
	body string
}

var myappTemplate = []templateFile{
	{"myapp-2.0/", ""},
	{"myapp-2.0/.harvest", "[harvest]\npackage = myapp\nversion = 0.0.0\n"},
	{"myapp-2.0/bin/manage.py", "#!/usr/bin/env python\nimport myapp.settings\n"},
	{"myapp-2.0/myapp/", ""},
	{"myapp-2.0/myapp/__init__.py", "NAME = 'myapp'\n"},
	{"myapp-2.0/requirements.txt", "django\n"},
}

func templateZip(t *testing.T, files []templateFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		if f.body != "" {
			_, err = w.Write([]byte(f.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type harness struct {
	base     string
	out      *bytes.Buffer
	runner   *fakeRunner
	requests *int32
	agent    *atomic.Value
	settings *config.Settings
	server   *httptest.Server
}

func newHarness(t *testing.T, files []templateFile) *harness {
	t.Helper()
	data := templateZip(t, files)

	var requests int32
	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		agent.Store(r.Header.Get("User-Agent"))
		w.Write(data)
	}))
	t.Cleanup(server.Close)

	settings := config.Defaults()
	settings.TemplateVersion = "2.0"
	settings.ArchiveURL = server.URL + "/archive/{version}.zip"
	settings.ArchiveName = "myapp-{version}.zip"

	return &harness{
		base:     t.TempDir(),
		out:      &bytes.Buffer{},
		runner:   &fakeRunner{},
		requests: &requests,
		agent:    &agent,
		settings: settings,
		server:   server,
	}
}

func (h *harness) bootstrapper(opts ...Option) *Bootstrapper {
	base := []Option{
		WithResolver(naming.NewStaticResolver(naming.StdlibModules...)),
		WithRunner(h.runner),
		WithPrinter(ui.NewPrinter(h.out)),
		WithLogger(zerolog.Nop()),
		WithHTTPClient(h.server.Client()),
		WithBaseDir(h.base),
		WithEnviron([]string{"PATH=/usr/bin:/bin", "HOME=/home/test"}),
	}
	return New(h.settings, append(base, opts...)...)
}

func envValue(env []string, key string) string {
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			return strings.TrimPrefix(kv, key+"=")
		}
	}
	return ""
}

func TestRun_WithEnvironmentNoInput(t *testing.T) {
	h := newHarness(t, myappTemplate)

	res, err := h.bootstrapper().Run(context.Background(), Request{
		Name:       "blog",
		CreateEnv:  true,
		AllowInput: false,
	})
	require.NoError(t, err)

	envDir := filepath.Join(h.base, "blog-env")
	project := filepath.Join(envDir, "blog")

	assert.Equal(t, []Step{
		StepValidate, StepProvisionEnv, StepMaterialize, StepRename,
		StepInstallDeps, StepCollectStatic, StepInitDB,
	}, res.Steps)
	assert.True(t, res.Downloaded)
	assert.Equal(t, "2.0", res.TemplateVersion)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, project, res.Paths.Project)
	assert.Equal(t, int32(1), atomic.LoadInt32(h.requests))
	assert.Equal(t, "harvest/2.0", h.agent.Load())

	assert.Equal(t, []string{
		"virtualenv " + envDir,
		"pip install -r requirements.txt",
		"make collect",
		"./bin/manage.py syncdb --migrate --noinput",
	}, h.runner.lines())
	assert.Equal(t, []runtime.Policy{
		{HideStdout: true, HideRunning: true},
		{HideRunning: true},
		{HideStdout: true, HideRunning: true},
		{HideStdout: true, HideRunning: true},
	}, h.runner.policies)

	for _, c := range h.runner.commands[1:] {
		assert.Equal(t, project, c.Dir)
		assert.Equal(t, envDir, envValue(c.Env, "VIRTUAL_ENV"))
		assert.True(t, strings.HasPrefix(envValue(c.Env, "PATH"), filepath.Join(envDir, "bin")))
	}

	assert.DirExists(t, filepath.Join(project, "blog"))
	assert.NoDirExists(t, filepath.Join(project, "myapp"))
	assert.NoFileExists(t, filepath.Join(envDir, "myapp-2.0.zip"))
	assert.NoDirExists(t, filepath.Join(envDir, "myapp-2.0"))

	initPy, err := os.ReadFile(filepath.Join(project, "blog", "__init__.py"))
	require.NoError(t, err)
	assert.Equal(t, "NAME = 'blog'\n", string(initPy))

	meta, err := metadata.Load(filepath.Join(project, ".harvest"), "harvest")
	require.NoError(t, err)
	pkg, err := meta.Package()
	require.NoError(t, err)
	assert.Equal(t, "blog", pkg)
	version, err := meta.Version()
	require.NoError(t, err)
	assert.Equal(t, "2.0", version)

	if os.PathSeparator == '/' {
		info, err := os.Stat(filepath.Join(project, "bin", "manage.py"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	}

	out := h.out.String()
	assert.Contains(t, out, "Setting up project 'blog'...")
	assert.Contains(t, out, "- Downloading Harvest @ 2.0")
	assert.Contains(t, out, "- Downloading and installing dependencies")
	assert.Contains(t, out, "- Collecting static files")
	assert.Contains(t, out, "- Setting up a SQLite database")
	assert.Contains(t, out, "Complete! Copy and paste the following in your shell:")
	assert.Contains(t, out, "cd blog-env/blog")
	assert.Contains(t, out, "source ../bin/activate")
	assert.Contains(t, out, "./bin/manage.py runserver")
	assert.Contains(t, out, "Open up a web browser and go to: http://localhost:8000")
	assert.NotContains(t, out, "inflating:")
	assert.NotContains(t, out, "[local] run:")

	assert.NoFileExists(t, filepath.Join(h.base, ".blog.harvest.lock"))
}

func TestRun_NoEnvNeverProvisions(t *testing.T) {
	h := newHarness(t, myappTemplate)

	res, err := h.bootstrapper().Run(context.Background(), Request{
		Name:       "blog",
		AllowInput: true,
		Verbosity:  2,
	})
	require.NoError(t, err)

	assert.NotContains(t, res.Steps, StepProvisionEnv)
	assert.Equal(t, []string{
		"pip install -r requirements.txt",
		"make collect",
		"./bin/manage.py syncdb --migrate",
	}, h.runner.lines())
	assert.Equal(t, runtime.Policy{}, h.runner.policies[1])
	assert.Equal(t, runtime.Policy{HideRunning: true}, h.runner.policies[2])

	for _, c := range h.runner.commands {
		assert.Empty(t, envValue(c.Env, "VIRTUAL_ENV"))
		assert.Equal(t, "/usr/bin:/bin", envValue(c.Env, "PATH"))
	}

	assert.DirExists(t, filepath.Join(h.base, "blog", "blog"))
	assert.NoDirExists(t, filepath.Join(h.base, "blog-env"))

	out := h.out.String()
	assert.Contains(t, out, "cd blog\n")
	assert.NotContains(t, out, "source ../bin/activate")
	assert.Contains(t, out, "inflating: myapp-2.0/requirements.txt")

	archivePath := filepath.Join(h.base, "myapp-2.0.zip")
	project := filepath.Join(h.base, "blog")
	assert.Contains(t, out, "[local] run: download "+h.server.URL+"/archive/2.0.zip")
	assert.Contains(t, out, "[local] run: unzip "+archivePath)
	assert.Contains(t, out, "[local] run: rm "+archivePath)
	assert.Contains(t, out, "[local] run: mv "+filepath.Join(h.base, "myapp-2.0")+" "+project)
	assert.Contains(t, out, "[local] run: mv "+filepath.Join(project, "myapp")+" "+filepath.Join(project, "blog"))
	assert.Less(t, strings.Index(out, "[local] run: unzip"), strings.Index(out, "[local] run: mv"))
}

func TestRun_LockHeldByLiveRun(t *testing.T) {
	h := newHarness(t, myappTemplate)

	release, err := lock.NewProjectLock(h.base).Acquire("blog", "other-run")
	require.NoError(t, err)

	res, err := h.bootstrapper().Run(context.Background(), Request{Name: "blog", CreateEnv: true})

	var bErr *Error
	require.True(t, errors.As(err, &bErr))
	assert.Equal(t, UserInput, bErr.Kind)
	assert.Equal(t, StepValidate, bErr.Step)
	var held *lock.HeldError
	assert.ErrorAs(t, err, &held)
	assert.Equal(t, []Step{StepValidate}, res.Steps)
	assert.Empty(t, h.runner.commands)
	assert.Equal(t, int32(0), atomic.LoadInt32(h.requests))
	assert.NoDirExists(t, filepath.Join(h.base, "blog-env"))
	assert.FileExists(t, filepath.Join(h.base, ".blog.harvest.lock"), "the other run's lock is left alone")

	require.NoError(t, release())
	_, err = h.bootstrapper().Run(context.Background(), Request{Name: "blog", CreateEnv: true})
	require.NoError(t, err)
}

func TestRun_RejectedNamesTouchNothing(t *testing.T) {
	tests := []struct {
		name     string
		project  string
		sentinel error
		message  string
	}{
		{"stdlib conflict", "os", naming.ErrNameConflict, "conflicts with an existing Python module"},
		{"invalid identifier", "my-blog", naming.ErrInvalidName, "must be a valid Python identifier"},
		{"leading digit", "1blog", naming.ErrInvalidName, "must be a valid Python identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, myappTemplate)

			res, err := h.bootstrapper().Run(context.Background(), Request{Name: tt.project, CreateEnv: true})
			require.Error(t, err)

			var bErr *Error
			require.True(t, errors.As(err, &bErr))
			assert.Equal(t, UserInput, bErr.Kind)
			assert.Equal(t, StepValidate, bErr.Step)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, err.Error(), tt.message)
			assert.Empty(t, res.Steps)

			entries, readErr := os.ReadDir(h.base)
			require.NoError(t, readErr)
			assert.Empty(t, entries, "no filesystem changes expected")
			assert.Empty(t, h.runner.commands)
			assert.Equal(t, int32(0), atomic.LoadInt32(h.requests))
		})
	}
}

func TestRun_ExistingProjectDirectory(t *testing.T) {
	h := newHarness(t, myappTemplate)
	require.NoError(t, os.MkdirAll(filepath.Join(h.base, "blog"), 0755))

	_, err := h.bootstrapper().Run(context.Background(), Request{Name: "blog"})

	var bErr *Error
	require.True(t, errors.As(err, &bErr))
	assert.Equal(t, UserInput, bErr.Kind)
	assert.Contains(t, err.Error(), "already exists")
	assert.Empty(t, h.runner.commands)
	assert.Equal(t, int32(0), atomic.LoadInt32(h.requests))
}

func TestRun_CachedArchiveDeclined(t *testing.T) {
	h := newHarness(t, myappTemplate)
	require.NoError(t, os.WriteFile(filepath.Join(h.base, "myapp-2.0.zip"), templateZip(t, myappTemplate), 0644))

	prompter := &cannedPrompter{answer: false}
	res, err := h.bootstrapper(WithPrompter(prompter)).Run(context.Background(), Request{
		Name:       "blog",
		AllowInput: true,
	})
	require.NoError(t, err)

	assert.False(t, res.Downloaded)
	assert.Equal(t, int32(0), atomic.LoadInt32(h.requests))
	assert.Equal(t, []string{"myapp-2.0.zip archive already exists. Redownload? "}, prompter.asked)
	assert.NotContains(t, h.out.String(), "- Downloading Harvest")
}

func TestRun_CachedArchiveNoInputSkipsPrompt(t *testing.T) {
	h := newHarness(t, myappTemplate)
	require.NoError(t, os.WriteFile(filepath.Join(h.base, "myapp-2.0.zip"), templateZip(t, myappTemplate), 0644))

	prompter := &cannedPrompter{answer: true}
	res, err := h.bootstrapper(WithPrompter(prompter)).Run(context.Background(), Request{Name: "blog"})
	require.NoError(t, err)

	assert.False(t, res.Downloaded)
	assert.Empty(t, prompter.asked)
	assert.Equal(t, int32(0), atomic.LoadInt32(h.requests))
}

func TestRun_CommandFailureAborts(t *testing.T) {
	h := newHarness(t, myappTemplate)
	h.runner.failOn = "make"

	res, err := h.bootstrapper().Run(context.Background(), Request{Name: "blog"})

	var bErr *Error
	require.True(t, errors.As(err, &bErr))
	assert.Equal(t, ExternalTool, bErr.Kind)
	assert.Equal(t, StepCollectStatic, bErr.Step)

	var exitErr *runtime.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.ExitCode)

	assert.Equal(t, []Step{StepValidate, StepMaterialize, StepRename, StepInstallDeps}, res.Steps)
	assert.Len(t, h.runner.commands, 2, "init-db must not run after a failure")
	assert.NotContains(t, h.out.String(), "Complete!")
	assert.DirExists(t, filepath.Join(h.base, "blog"), "completed work is not rolled back")
}

func TestRun_MissingMetadata(t *testing.T) {
	h := newHarness(t, []templateFile{
		{"myapp-2.0/", ""},
		{"myapp-2.0/myapp/__init__.py", "x = 1\n"},
	})

	_, err := h.bootstrapper().Run(context.Background(), Request{Name: "blog"})

	var bErr *Error
	require.True(t, errors.As(err, &bErr))
	assert.Equal(t, Metadata, bErr.Kind)
	assert.Equal(t, StepMaterialize, bErr.Step)

	var metaErr *metadata.Error
	assert.True(t, errors.As(err, &metaErr))
	assert.Empty(t, h.runner.commands)
}

func TestRun_ProvisionFailure(t *testing.T) {
	h := newHarness(t, myappTemplate)
	h.runner.failOn = "virtualenv"

	res, err := h.bootstrapper().Run(context.Background(), Request{Name: "blog", CreateEnv: true})

	var bErr *Error
	require.True(t, errors.As(err, &bErr))
	assert.Equal(t, StepProvisionEnv, bErr.Step)
	assert.Equal(t, []Step{StepValidate}, res.Steps)
	assert.Equal(t, int32(0), atomic.LoadInt32(h.requests))
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(t, myappTemplate)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.bootstrapper().Run(ctx, Request{Name: "blog"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.runner.commands)
}

func TestResolvePaths(t *testing.T) {
	p := ResolvePaths("/work", "blog", true, "t-2.0.zip")
	assert.Equal(t, filepath.Join("/work", "blog-env"), p.Env)
	assert.Equal(t, p.Env, p.Work)
	assert.Equal(t, filepath.Join("/work", "blog-env", "t-2.0.zip"), p.Archive)
	assert.Equal(t, filepath.Join("/work", "blog-env", "blog"), p.Project)

	p = ResolvePaths("/work", "blog", false, "t-2.0.zip")
	assert.Empty(t, p.Env)
	assert.Equal(t, "/work", p.Work)
	assert.Equal(t, filepath.Join("/work", "blog"), p.Project)
}
