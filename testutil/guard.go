// Package testutil provides helpers for enforcing package boundaries across
// the repository from ordinary tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// AssertNoDirectImports scans all non-test .go files in dir (typically "." from within the package)
// and fails if any import path satisfies the forbidden predicate. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfViolations(t, "forbidden direct imports detected", reason, viols)
}

// AssertImportBoundary loads every package matched by pattern, tests
// included, and fails when a package outside allowed imports guarded or one
// of its subpackages. Packages under guarded may import each other.
func AssertImportBoundary(t testing.TB, pattern, guarded string, allowed ...string) {
	t.Helper()
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	failIfViolations(t, "forbidden imports detected", "only "+strings.Join(allowed, ", ")+" may import "+guarded, boundaryViolations(pkgs, guarded, allowed))
}

// InternalImportForbidden returns a predicate matching any import path containing /internal/.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// WithinPrefix reports whether path is prefix or nested below it.
func WithinPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func boundaryViolations(pkgs []*packages.Package, guarded string, allowed []string) []string {
	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		// Test binaries and external test packages belong to their package.
		owner := strings.TrimSuffix(strings.TrimSuffix(pkg.PkgPath, ".test"), "_test")
		if WithinPrefix(owner, guarded) || permitted(owner, allowed) {
			continue
		}
		for importPath := range pkg.Imports {
			if WithinPrefix(importPath, guarded) {
				seen[owner+": "+importPath] = struct{}{}
			}
		}
	}
	viols := make([]string, 0, len(seen))
	for v := range seen {
		viols = append(viols, v)
	}
	sort.Strings(viols)
	return viols
}

func permitted(pkgPath string, allowed []string) bool {
	for _, prefix := range allowed {
		if WithinPrefix(pkgPath, prefix) {
			return true
		}
	}
	return false
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, headline, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("%s (%s):\n%s", headline, reason, strings.Join(viols, "\n"))
	}
}
