package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"timeliner/internal/config"
	"timeliner/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every check for cfg. Optional failures are reported but
// do not make Failed return true.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Paths.ProjectDB != "" {
		results = append(results, CheckDirectoryAccess("Project directory", filepath.Dir(cfg.Paths.ProjectDB)))
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, fromDependency(status))
	}
	return results
}

// Failed returns the first required check that did not pass.
func Failed(results []Result) (Result, bool) {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return r, true
		}
	}
	return Result{}, false
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func fromDependency(status deps.Status) Result {
	r := Result{
		Name:     "Dependency " + status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
	}
	switch {
	case status.Available:
		r.Detail = fmt.Sprintf("%s (available)", status.Command)
	case status.Optional:
		r.Detail = fmt.Sprintf("%s (optional: %s)", status.Command, status.Detail)
	default:
		r.Detail = fmt.Sprintf("%s (error: %s)", status.Command, status.Detail)
	}
	return r
}
