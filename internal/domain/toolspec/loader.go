package toolspec

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nlatta/caseforge/internal/domain/policy"
)

// ErrSpecParse wraps YAML decoding failures (GenerationError taxonomy:
// parse failures halt the build run).
var ErrSpecParse = errors.New("tool spec parse failure")

//go:embed specs/*.yaml
var embeddedSpecs embed.FS

// LoadEmbedded parses the specs bundled with the binary.
func LoadEmbedded() ([]Spec, error) {
	return LoadFS(embeddedSpecs, "specs")
}

// LoadDir parses all *.yaml specs under dir on the local filesystem.
func LoadDir(dir string) ([]Spec, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS parses every *.yaml file under dir in fsys, sorted by filename so
// load order is deterministic. Each spec is structurally validated and gets
// the default policy overlay when none is declared.
func LoadFS(fsys fs.FS, dir string) ([]Spec, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("toolspec: read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		path := dir + "/" + name
		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("toolspec: read %s: %w", path, err)
		}
		spec, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		spec.Source = name
		specs = append(specs, spec)
	}
	return specs, nil
}

// Parse decodes and validates one spec document, merging the default policy
// overlay when the spec declares none.
func Parse(raw []byte) (Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrSpecParse, err)
	}

	if spec.Policy == nil {
		spec.Policy = &policy.Overlay{Template: policy.DefaultTemplate}
	} else if spec.Policy.Template == "" {
		spec.Policy.Template = policy.DefaultTemplate
	}

	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}
