// Package testutil holds helpers that enforce package boundaries in tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
)

// ModulePath is the import path prefix of this module.
const ModulePath = "communityconnect"

// Under returns a predicate matching import paths equal to or nested below any
// of prefixes.
func Under(prefixes ...string) func(string) bool {
	return func(path string) bool {
		for _, p := range prefixes {
			if path == p || strings.HasPrefix(path, p+"/") {
				return true
			}
		}
		return false
	}
}

// InternalImportForbidden matches any internal package of this or another module.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/") || Under(ModulePath+"/internal")(path)
}

// AssertNoDirectImports parses the non-test Go files of dir and fails t when
// an import matches forbidden.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden imports (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

// AssertNoTransitiveDependency runs `go list -deps pattern` and fails t when a
// dependency matches forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(string) bool, reason string) {
	t.Helper()
	out, err := goListDeps(pattern)
	if err != nil {
		t.Fatalf("go list -deps %s: %v\n%s", pattern, err, out)
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" && forbidden(line) {
			viols = append(viols, line)
		}
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden dependencies (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

var goListDeps = func(pattern string) ([]byte, error) {
	return exec.Command("go", "list", "-deps", pattern).CombinedOutput()
}

func directImportViolations(dir string, forbidden func(string) bool) ([]string, error) {
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
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range f.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return nil, err
			}
			if forbidden(path) {
				viols = append(viols, path+" (in "+name+")")
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}
