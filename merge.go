package capstonesys

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"sort"
	"strconv"
)

// mergeGoFiles combines the files emitted by the translator into a single
// gofmt'ed source file for package pkg.
//
// cgo preambles are concatenated in file order (duplicates dropped), imports
// are unioned and every remaining top-level declaration is copied verbatim
// together with its doc comment.
func mergeGoFiles(pkg, header string, paths []string) ([]byte, error) {
	fset := token.NewFileSet()

	var (
		preambles []string
		decls     bytes.Buffer
		usesC     bool
	)
	seenPreamble := make(map[string]bool)
	imports := make(map[string]string) // path -> local name

	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading generated file: %w", err)
		}
		file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parsing generated file: %w", err)
		}

		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.IMPORT {
				start := decl.Pos()
				if doc := declDoc(decl); doc != nil {
					start = doc.Pos()
				}
				decls.Write(src[fset.Position(start).Offset:fset.Position(decl.End()).Offset])
				decls.WriteString("\n\n")
				continue
			}

			for _, spec := range gen.Specs {
				imp := spec.(*ast.ImportSpec)
				importPath, err := strconv.Unquote(imp.Path.Value)
				if err != nil {
					return nil, fmt.Errorf("%s: bad import path %s", path, imp.Path.Value)
				}
				if importPath != "C" {
					name := ""
					if imp.Name != nil {
						name = imp.Name.Name
					}
					imports[importPath] = name
					continue
				}

				usesC = true
				doc := imp.Doc
				if doc == nil && !gen.Lparen.IsValid() {
					doc = gen.Doc
				}
				if doc == nil {
					continue
				}
				text := string(src[fset.Position(doc.Pos()).Offset:fset.Position(doc.End()).Offset])
				if !seenPreamble[text] {
					seenPreamble[text] = true
					preambles = append(preambles, text)
				}
			}
		}
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "// Code generated by capstone-sys from %s. DO NOT EDIT.\n\n", header)
	fmt.Fprintf(&out, "package %s\n\n", pkg)

	if usesC {
		for _, preamble := range preambles {
			out.WriteString(preamble)
			out.WriteString("\n")
		}
		out.WriteString("import \"C\"\n\n")
	}

	if len(imports) > 0 {
		importPaths := make([]string, 0, len(imports))
		for p := range imports {
			importPaths = append(importPaths, p)
		}
		sort.Strings(importPaths)

		out.WriteString("import (\n")
		for _, p := range importPaths {
			if name := imports[p]; name != "" {
				fmt.Fprintf(&out, "\t%s %q\n", name, p)
			} else {
				fmt.Fprintf(&out, "\t%q\n", p)
			}
		}
		out.WriteString(")\n\n")
	}

	out.Write(decls.Bytes())

	formatted, err := format.Source(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting merged bindings: %w", err)
	}
	return formatted, nil
}

func declDoc(decl ast.Decl) *ast.CommentGroup {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		return d.Doc
	case *ast.GenDecl:
		return d.Doc
	}
	return nil
}
