package modules

import (
	"context"
	"errors"

	rbac "github.com/bohemiyan/erp-rbac"
	"go.uber.org/zap"
)

// Missing describes a prerequisite that is not installed.
type Missing struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	SetupHint   string `json:"setup_hint,omitempty"`
}

// Result is the outcome of a prerequisite check. Met=false is a normal
// state that the caller renders as "module unavailable".
type Result struct {
	Module  string    `json:"module"`
	Met     bool      `json:"met"`
	Missing []Missing `json:"missing"`
}

// MissingKeys returns the keys of the missing prerequisites.
func (r Result) MissingKeys() []string {
	keys := make([]string, 0, len(r.Missing))
	for _, m := range r.Missing {
		keys = append(keys, m.Key)
	}
	return keys
}

// Checker resolves a module's direct prerequisites against the
// installation state.
type Checker struct {
	graph *Graph
	state InstallationState
	log   *zap.Logger
}

// NewChecker builds a Checker.
func NewChecker(graph *Graph, state InstallationState, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{graph: graph, state: state, log: log.Named("modules")}
}

// Graph returns the graph the checker resolves against.
func (c *Checker) Graph() *Graph {
	return c.graph
}

// CheckPrerequisites reports which direct prerequisites of moduleKey are
// not installed. Unknown modules and modules without prerequisites are
// always met. A prerequisite whose state cannot be read counts as missing.
func (c *Checker) CheckPrerequisites(ctx context.Context, moduleKey string) Result {
	return c.check(ctx, moduleKey, c.graph.Prerequisites(moduleKey))
}

// CheckMandatory reports which platform-wide mandatory modules are not
// installed.
func (c *Checker) CheckMandatory(ctx context.Context) Result {
	return c.check(ctx, "", c.graph.Mandatory())
}

func (c *Checker) check(ctx context.Context, moduleKey string, prereqs []string) Result {
	res := Result{Module: moduleKey, Met: true, Missing: []Missing{}}
	for _, p := range prereqs {
		installed, err := c.state.IsInstalled(ctx, p)
		if err != nil {
			if !errors.Is(err, rbac.ErrNotFound) {
				c.log.Warn("prerequisite check failed, treating as missing",
					zap.String("module", moduleKey),
					zap.String("prerequisite", p),
					zap.Error(err))
			}
			installed = false
		}
		if installed {
			continue
		}
		res.Met = false
		res.Missing = append(res.Missing, c.describe(p))
	}
	return res
}

func (c *Checker) describe(key string) Missing {
	m, ok := c.graph.Module(key)
	if !ok {
		return Missing{Key: key, DisplayName: key}
	}
	return Missing{Key: m.Key, DisplayName: m.DisplayName, SetupHint: m.SetupHint}
}
