package capstonesys

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// DirectivePrefix starts every line written to the directive writer.
const DirectivePrefix = "capstone-sys:"

// DirectiveKind is the kind of a link directive.
type DirectiveKind string

const (
	// DirectiveLinkSearch adds a native library search directory.
	DirectiveLinkSearch DirectiveKind = "link-search"
	// DirectiveLinkLib links a named library.
	DirectiveLinkLib DirectiveKind = "link-lib"
)

// Directive is one instruction to the enclosing build.
type Directive struct {
	Kind     DirectiveKind
	LinkType LinkType // Only set for link-lib
	Value    string   // Directory for link-search, library name for link-lib
}

// String renders the directive without the prefix, for example
// "link-search=native=/out" or "link-lib=static=capstone".
func (d Directive) String() string {
	switch d.Kind {
	case DirectiveLinkSearch:
		return fmt.Sprintf("%s=native=%s", d.Kind, d.Value)
	case DirectiveLinkLib:
		return fmt.Sprintf("%s=%s=%s", d.Kind, d.LinkType, d.Value)
	}
	return fmt.Sprintf("%s=%s", d.Kind, d.Value)
}

// LinkDirectives returns the directives for an acquisition: one link-search
// per search directory followed by exactly one link-lib.
func LinkDirectives(acq *Acquisition, libraryName string) []Directive {
	var directives []Directive
	for _, dir := range uniqueStrings(acq.SearchDirs) {
		directives = append(directives, Directive{Kind: DirectiveLinkSearch, Value: dir})
	}
	return append(directives, Directive{Kind: DirectiveLinkLib, LinkType: acq.LinkType, Value: libraryName})
}

// Publisher emits link directives and the generated cgo flags file.
type Publisher struct {
	// Out receives one "capstone-sys:<directive>" line per directive.
	// Nothing is printed when Out is nil.
	Out io.Writer
}

// Publish writes the directives for acq and renders the cgo flags file
// into OutDir. It returns the published directives.
func (p *Publisher) Publish(config *BuildConfig, acq *Acquisition, includeDirs []string) ([]Directive, error) {
	directives := LinkDirectives(acq, config.libraryName())

	if p.Out != nil {
		for _, d := range directives {
			if _, err := fmt.Fprintf(p.Out, "%s%s\n", DirectivePrefix, d); err != nil {
				return nil, fmt.Errorf("writing directives: %w", err)
			}
		}
	}

	src, err := renderCgoFile(config, acq, includeDirs)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(config.OutDir, DefaultCgoFile)
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return nil, fmt.Errorf("writing cgo flags: %w", err)
	}
	config.logger().Info("published link directives", "count", len(directives), "cgo", path)

	return directives, nil
}

var cgoTemplate = template.Must(template.New("cgo").Parse(`// Code generated by capstone-sys. DO NOT EDIT.

package {{.Package}}

{{range .CFlags}}// #cgo CFLAGS: {{.}}
{{end}}{{range .LDFlags}}// #cgo LDFLAGS: {{.}}
{{end}}import "C"
`))

// renderCgoFile returns the cgo directives for the acquisition. A static
// artifact is linked by path so the linker cannot pick a shared copy of the
// same library from a system directory.
func renderCgoFile(config *BuildConfig, acq *Acquisition, includeDirs []string) ([]byte, error) {
	var cflags, ldflags []string
	for _, dir := range uniqueStrings(includeDirs) {
		cflags = append(cflags, cgoQuote("-I"+dir))
	}

	if acq.LinkType == Static && acq.Artifact != "" {
		ldflags = append(ldflags, cgoQuote(acq.Artifact))
	} else {
		for _, dir := range uniqueStrings(acq.SearchDirs) {
			ldflags = append(ldflags, cgoQuote("-L"+dir))
		}
		ldflags = append(ldflags, "-l"+config.libraryName())
	}

	var buf bytes.Buffer
	err := cgoTemplate.Execute(&buf, struct {
		Package string
		CFlags  []string
		LDFlags []string
	}{config.cgoPackage(), cflags, ldflags})
	if err != nil {
		return nil, fmt.Errorf("rendering cgo flags: %w", err)
	}
	return buf.Bytes(), nil
}

// cgoQuote quotes a flag containing whitespace; #cgo lines are split on
// spaces unless quoted.
func cgoQuote(flag string) string {
	if !strings.ContainsAny(flag, " \t") {
		return flag
	}
	return `"` + strings.ReplaceAll(flag, `"`, `\"`) + `"`
}

// CopyPregenerated copies the checked-in bindings into OutDir unchanged and
// returns the destination path.
func CopyPregenerated(config *BuildConfig) (string, error) {
	src := config.pregeneratedPath()
	if !fileExists(src) {
		return "", discoveryError("copy pregenerated bindings",
			fmt.Errorf("%s does not exist", src))
	}

	dst := filepath.Join(config.OutDir, config.bindingsFile())
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("unable to copy pregenerated bindings: %w", err)
	}

	// Support files stored alongside by an earlier update.
	entries, err := os.ReadDir(filepath.Dir(src))
	if err != nil {
		return "", fmt.Errorf("unable to read pregenerated bindings: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !MatchesExtension(entry.Name(), supportExtensions...) {
			continue
		}
		from := filepath.Join(filepath.Dir(src), entry.Name())
		if err := copyFile(from, filepath.Join(config.OutDir, entry.Name())); err != nil {
			return "", fmt.Errorf("unable to copy %s: %w", entry.Name(), err)
		}
	}
	return dst, nil
}
