//go:build governance

package core_test

import (
	"go/types"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// =============================================================================
// PURITY TEST - No type alias re-exports of core types
// =============================================================================

// TestGovernance_NoCoreTypeAliases ensures no package re-exports a core type
// under an alias. Consumers use core.X directly.
func TestGovernance_NoCoreTypeAliases(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedTypes,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	corePath := modulePath + "/pkg/core"
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 || pkg.PkgPath == corePath {
			continue
		}

		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			typeName, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !typeName.IsAlias() {
				continue
			}
			named, ok := types.Unalias(typeName.Type()).(*types.Named)
			if !ok || named.Obj().Pkg() == nil || named.Obj().Pkg().Path() != corePath {
				continue
			}
			t.Errorf("PURITY VIOLATION: Package '%s' re-exports core.%s as '%s'.\n"+
				"   Fix: Remove the alias and use core.%s directly.",
				strings.TrimPrefix(pkg.PkgPath, modulePath+"/"), named.Obj().Name(), name, named.Obj().Name())
		}
	}
}

// =============================================================================
// LAYERING TEST - pkg/ never depends on internal/
// =============================================================================

// TestGovernance_PublicDependencies walks the full dependency graph of every
// package under pkg/ and fails when an internal package is reachable.
func TestGovernance_PublicDependencies(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	internalPrefix := modulePath + "/internal/"
	for _, root := range pkgs {
		seen := make(map[string]bool)
		var visit func(p *packages.Package)
		visit = func(p *packages.Package) {
			if seen[p.PkgPath] {
				return
			}
			seen[p.PkgPath] = true
			if strings.HasPrefix(p.PkgPath, internalPrefix) {
				t.Errorf("LAYERING VIOLATION: '%s' depends on '%s'",
					strings.TrimPrefix(root.PkgPath, modulePath+"/"), strings.TrimPrefix(p.PkgPath, modulePath+"/"))
				return
			}
			for _, imp := range p.Imports {
				visit(imp)
			}
		}
		visit(root)
	}
}
