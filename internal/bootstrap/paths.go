package bootstrap

import "path/filepath"

// Paths are the filesystem locations a run works with.
type Paths struct {
	// Base is the directory harvest was invoked from.
	Base string
	// Work holds the archive and the project: Base, or the environment
	// directory when one is created.
	Work string
	// Env is the environment directory, empty with --no-env.
	Env string
	// Archive is the cached template archive.
	Archive string
	// TemplateRoot is the extracted template directory, known after
	// materialization.
	TemplateRoot string
	// Project is the final project directory.
	Project string
}

// ResolvePaths derives the locations for a project named name.
func ResolvePaths(base, name string, createEnv bool, archiveName string) Paths {
	p := Paths{Base: base, Work: base}
	if createEnv {
		p.Env = filepath.Join(base, EnvDirName(name))
		p.Work = p.Env
	}
	p.Archive = filepath.Join(p.Work, archiveName)
	p.Project = filepath.Join(p.Work, name)
	return p
}

// EnvDirName is the environment directory created for a project.
func EnvDirName(name string) string {
	return name + "-env"
}
