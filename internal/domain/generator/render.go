package generator

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/policy"
	"github.com/nlatta/caseforge/internal/domain/tool"
	"github.com/nlatta/caseforge/internal/domain/toolspec"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var tmpl = template.Must(template.New("gen").Funcs(template.FuncMap{
	"quote":          strconv.Quote,
	"kind":           kindConst,
	"classification": classificationLit,
	"overlay":        overlayLit,
	"steps":          stepsLit,
	"payload":        payloadLit,
}).ParseFS(templateFS, "templates/*.tmpl"))

// File is one artifact to write, path relative to the output directory.
type File struct {
	Path    string
	Content []byte
}

// Result is a whole generation run: the artifacts and any resolution
// problems. Files is empty when Problems is not.
type Result struct {
	Files    []File
	Problems []Problem
}

// Manifest is the JSON parameter snapshot the alignment validator diffs
// against a live re-derivation.
type Manifest struct {
	Tool       string                          `json:"tool"`
	Kind       tool.Kind                       `json:"kind"`
	Operation  string                          `json:"operation,omitempty"`
	Source     string                          `json:"source"`
	Parameters []operation.ParameterDefinition `json:"parameters"`
}

// Generate resolves every spec and renders the full artifact set: one impl
// file and test scaffold per tool, one manifest per tool, and the load file.
// Rendering is deterministic; regenerating from unchanged specs yields
// byte-identical output.
func (g *Generator) Generate(specs []toolspec.Spec) (*Result, error) {
	res := &Result{}
	var (
		defs []*tool.Definition
		exs  [][]toolspec.Example
	)
	for i := range specs {
		def, problems := g.Resolve(&specs[i])
		if len(problems) > 0 {
			res.Problems = append(res.Problems, problems...)
			continue
		}
		defs = append(defs, def)
		exs = append(exs, specs[i].Examples)
	}
	if len(res.Problems) > 0 {
		return res, fmt.Errorf("%w: %d problems", ErrUnresolved, len(res.Problems))
	}

	var varNames []string
	for i, def := range defs {
		data := implData{
			SourceFile: def.Source,
			VarName:    varName(def.Name),
			Def:        def,
			Examples:   exs[i],
		}
		varNames = append(varNames, data.VarName)

		impl, err := renderGo("impl.go.tmpl", data)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", def.Name, err)
		}
		res.Files = append(res.Files, File{Path: def.Name + ".go", Content: impl})

		testSrc, err := renderGo("impl_test.go.tmpl", data)
		if err != nil {
			return nil, fmt.Errorf("render %s test: %w", def.Name, err)
		}
		res.Files = append(res.Files, File{Path: def.Name + "_test.go", Content: testSrc})

		m, err := json.MarshalIndent(Manifest{
			Tool:       def.Name,
			Kind:       def.Kind,
			Operation:  def.Operation,
			Source:     def.Source,
			Parameters: def.Parameters,
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", def.Name, err)
		}
		res.Files = append(res.Files, File{
			Path:    filepath.Join("manifests", def.Name+".json"),
			Content: append(m, '\n'),
		})
	}

	loadSrc, err := renderGo("load.go.tmpl", struct{ Vars []string }{varNames})
	if err != nil {
		return nil, fmt.Errorf("render load: %w", err)
	}
	res.Files = append(res.Files, File{Path: "load.go", Content: loadSrc})
	return res, nil
}

// WriteFiles writes artifacts under dir, creating subdirectories as needed.
func WriteFiles(dir string, files []File) error {
	for _, f := range files {
		path := filepath.Join(dir, f.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	return nil
}

type implData struct {
	SourceFile string
	VarName    string
	Def        *tool.Definition
	Examples   []toolspec.Example
}

func renderGo(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("gofmt: %w", err)
	}
	return src, nil
}

// varName maps a snake_case tool name to its exported Go identifier.
func varName(toolName string) string {
	parts := strings.Split(toolName, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

func kindConst(k tool.Kind) string {
	switch k {
	case tool.KindSimple:
		return "tool.KindSimple"
	case tool.KindAPICall:
		return "tool.KindAPICall"
	case tool.KindDataTransform:
		return "tool.KindDataTransform"
	case tool.KindComposite:
		return "tool.KindComposite"
	}
	return strconv.Quote(string(k))
}

func classificationLit(c operation.Classification) string {
	return fmt.Sprintf(`operation.Classification{
	Domain: %q,
	Subdomain: %q,
	Capability: %q,
	Complexity: %q,
	Maturity: %q,
	IntegrationTier: %q,
}`, c.Domain, c.Subdomain, c.Capability, c.Complexity, c.Maturity, c.IntegrationTier)
}

func overlayLit(o policy.Overlay) string {
	var b strings.Builder
	b.WriteString("policy.Overlay{")
	if o.Template != "" {
		fmt.Fprintf(&b, "Template: %q", o.Template)
	}
	if o.Session != nil {
		fmt.Fprintf(&b, ", Session: &policy.SessionPolicy{RequiresActiveSession: %v, AllowNewSession: %v, AllowSessionResume: %v}",
			o.Session.RequiresActiveSession, o.Session.AllowNewSession, o.Session.AllowSessionResume)
	}
	if o.Casefile != nil {
		fmt.Fprintf(&b, ", Casefile: &policy.CasefilePolicy{RequiresCasefile: %v, AllowedStatuses: %#v}",
			o.Casefile.RequiresCasefile, o.Casefile.AllowedStatuses)
	}
	if o.Audit != nil {
		fmt.Fprintf(&b, ", Audit: &policy.AuditPolicy{Enabled: %v, IncludePayload: %v}",
			o.Audit.Enabled, o.Audit.IncludePayload)
	}
	b.WriteString("}")
	return b.String()
}

func stepsLit(steps []tool.CompositeStep) string {
	var b strings.Builder
	b.WriteString("[]tool.CompositeStep{\n")
	for _, s := range steps {
		b.WriteString(stepLit(s))
		b.WriteString(",\n")
	}
	b.WriteString("}")
	return b.String()
}

func stepLit(s tool.CompositeStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "{\n\tID: %q,\n\tOperation: %q,\n", s.ID, s.Operation)
	if len(s.Input) > 0 {
		fmt.Fprintf(&b, "\tInput: %s,\n", stringMapLit(s.Input))
	}
	if len(s.Output) > 0 {
		fmt.Fprintf(&b, "\tOutput: %s,\n", stringMapLit(s.Output))
	}
	if s.OnError != "" {
		fmt.Fprintf(&b, "\tOnError: %q,\n", s.OnError)
	}
	if s.RetryLimit > 0 {
		fmt.Fprintf(&b, "\tRetryLimit: %d,\n", s.RetryLimit)
	}
	if s.Rollback != nil {
		fmt.Fprintf(&b, "\tRollback: &tool.CompositeStep%s,\n", stepLit(*s.Rollback))
	}
	b.WriteString("}")
	return b.String()
}

func stringMapLit(m map[string]string) string {
	var b strings.Builder
	b.WriteString("map[string]string{")
	for i, k := range sortedKeys(m) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %q", k, m[k])
	}
	b.WriteString("}")
	return b.String()
}

func payloadLit(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	b.WriteString("map[string]any{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %s", k, valueLit(m[k]))
	}
	b.WriteString("}")
	return b.String()
}

func valueLit(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%#v", v)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
