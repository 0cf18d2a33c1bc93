package migration

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
)

const registryFile = "models_registry.go"

// ScanModels parses the Go files in dir and returns, sorted, the structs that
// are persisted: those embedding gorm.Model or declaring a primaryKey field.
func ScanModels(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var names []string
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || name == registryFile {
			continue
		}
		found, err := modelsInFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		names = append(names, found...)
	}
	sort.Strings(names)
	return names, nil
}

func modelsInFile(path string) ([]string, error) {
	node, err := parser.ParseFile(token.NewFileSet(), path, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	var names []string
	for _, decl := range node.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			structType, ok := typeSpec.Type.(*ast.StructType)
			if ok && isModel(structType) {
				names = append(names, typeSpec.Name.Name)
			}
		}
	}
	return names, nil
}

func isModel(st *ast.StructType) bool {
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			if sel, ok := field.Type.(*ast.SelectorExpr); ok {
				if pkg, ok := sel.X.(*ast.Ident); ok && pkg.Name == "gorm" && sel.Sel.Name == "Model" {
					return true
				}
			}
			continue
		}
		if field.Tag == nil {
			continue
		}
		tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
		if strings.Contains(tag.Get("gorm"), "primaryKey") {
			return true
		}
	}
	return false
}

// WriteRegistryFile regenerates models_registry.go in dir from ScanModels.
func WriteRegistryFile(dir string) (string, []string, error) {
	names, err := ScanModels(dir)
	if err != nil {
		return "", nil, err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "package %s\n\n", filepath.Base(dir))
	b.WriteString("// ModelTypeRegistry lists every persisted model by type name.\n")
	b.WriteString("var ModelTypeRegistry = map[string]interface{}{\n")
	for _, name := range names {
		fmt.Fprintf(&b, "%q: %s{},\n", name, name)
	}
	b.WriteString("}\n")

	src, err := format.Source(b.Bytes())
	if err != nil {
		return "", nil, fmt.Errorf("failed to format model registry: %w", err)
	}

	path := filepath.Join(dir, registryFile)
	if err := os.WriteFile(path, src, 0644); err != nil {
		return "", nil, fmt.Errorf("failed to create model registry file: %w", err)
	}
	return path, names, nil
}
