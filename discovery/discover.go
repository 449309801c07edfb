// Package discovery finds the protectable resources of the ERP and feeds
// them to the permission registry.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	rbac "github.com/bohemiyan/erp-rbac"
	"github.com/bohemiyan/erp-rbac/routing"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultSkipDirs are namespaces that never hold protectable pages.
var DefaultSkipDirs = []string{"api", "assets", "includes", "vendor"}

// rootModule is the module of pages placed directly in the tree root.
const rootModule = "core"

// Options tunes the walk.
type Options struct {
	// SkipDirs are directory names skipped at any depth. Nil means
	// DefaultSkipDirs.
	SkipDirs []string
	// Extensions limits the walk to files with these extensions. Empty
	// means every file.
	Extensions []string
}

// Discover walks the page tree and returns one candidate per resource the
// mapper can resolve a page to, followed by the resources the rule table
// declares. Skip routes and skipped namespaces produce nothing.
func Discover(fsys fs.FS, mapper *routing.Mapper, opts Options) ([]rbac.Candidate, error) {
	skip := make(map[string]bool)
	dirs := opts.SkipDirs
	if dirs == nil {
		dirs = DefaultSkipDirs
	}
	for _, d := range dirs {
		skip[d] = true
	}
	exts := make(map[string]bool)
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	seen := make(map[string]bool)
	var out []rbac.Candidate

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && (skip[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(path.Ext(p))] {
			return nil
		}

		res := mapper.Resolve("/" + p)
		if res.Skip || res.Pattern != "" || seen[res.Resource] {
			return nil
		}
		seen[res.Resource] = true

		module, submodule := modulePath(p, true)
		out = append(out, rbac.Candidate{
			ResourceKey: res.Resource,
			Module:      module,
			Submodule:   submodule,
			DisplayName: DisplayName(path.Base(p)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk page tree: %w", err)
	}

	for _, r := range mapper.Resources() {
		if seen[r.Key] {
			continue
		}
		seen[r.Key] = true
		module, submodule := modulePath(strings.TrimPrefix(r.Pattern, "/"), false)
		out = append(out, rbac.Candidate{
			ResourceKey: r.Key,
			Module:      module,
			Submodule:   submodule,
			DisplayName: DisplayName(r.Key),
		})
	}
	return out, nil
}

// modulePath derives module and submodule from the first two segments of a
// slash-separated path. For a file path the last segment is the leaf and
// never counts as a module.
func modulePath(p string, isFile bool) (module, submodule string) {
	segs := strings.Split(p, "/")
	if isFile {
		segs = segs[:len(segs)-1]
	}
	if len(segs) == 0 || segs[0] == "" {
		return rootModule, ""
	}
	module = segs[0]
	if len(segs) > 1 {
		submodule = segs[1]
	}
	return module, submodule
}

// DisplayName turns "salary_slip.php" into "Salary Slip".
func DisplayName(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return cases.Title(language.English).String(strings.Join(strings.Fields(name), " "))
}

// Registry ties discovery to the permission store.
type Registry struct {
	fsys   fs.FS
	mapper *routing.Mapper
	store  *rbac.RBAC
	opts   Options
}

// NewRegistry builds a Registry over the page tree fsys.
func NewRegistry(fsys fs.FS, mapper *routing.Mapper, store *rbac.RBAC, opts Options) *Registry {
	return &Registry{fsys: fsys, mapper: mapper, store: store, opts: opts}
}

// Discover lists the current candidates.
func (r *Registry) Discover() ([]rbac.Candidate, error) {
	return Discover(r.fsys, r.mapper, r.opts)
}

// Sync discovers and reconciles in one call.
func (r *Registry) Sync(ctx context.Context, actorID uint) (rbac.SyncResult, error) {
	candidates, err := r.Discover()
	if err != nil {
		return rbac.SyncResult{}, err
	}
	return r.store.Sync(ctx, candidates, actorID)
}
