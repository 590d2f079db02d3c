// Package deps reports whether the external programs timeliner shells out
// to can be found.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"timeliner/internal/config"
)

// Requirement defines an external program timeliner relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the programs the configuration refers to. ffprobe is
// optional while native EBML probing can still describe WebM and Matroska
// assets on its own.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{{
		Name:        "ffprobe",
		Command:     cfg.FFprobeBinary(),
		Description: "resolves asset duration and streams",
		Optional:    cfg.Resolver.NativeEBML,
	}}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Command = path
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
