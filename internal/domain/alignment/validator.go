// Package alignment re-derives tool parameter lists from the canonical
// operation registry and diffs them against what the generator produced.
// It is the quality gate behind `forgegen validate`: a release with ERROR
// findings does not ship.
package alignment

import (
	"encoding/json"
	"fmt"

	"github.com/nlatta/caseforge/internal/domain/generator"
	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/tool"
	"github.com/nlatta/caseforge/internal/domain/toolspec"
)

// Severity ranks a finding. Only ERROR findings fail the gate.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Finding codes.
const (
	CodeMissingReference   = "missing_reference"
	CodeParameterMismatch  = "parameter_mismatch"
	CodeTypeMismatch       = "type_mismatch"
	CodeManifestDrift      = "manifest_drift"
	CodeManifestMissing    = "manifest_missing"
	CodeDeprecatedOp       = "deprecated_operation"
	CodeMissingReplacement = "missing_replacement"
	CodeMissingExample     = "missing_example"
	CodeMissingDoc         = "missing_doc"
)

// Finding is one alignment observation, always attributed to a tool.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Tool     string   `json:"tool"`
	Detail   string   `json:"detail"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s %s: %s", f.Severity, f.Code, f.Tool, f.Detail)
}

// Report is the outcome of one full scan.
type Report struct {
	Findings []Finding `json:"findings"`
}

// Pass reports whether the scan is free of ERROR findings. Warnings and
// info findings never block.
func (r *Report) Pass() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Count returns the number of findings at the given severity.
func (r *Report) Count(sev Severity) int {
	var n int
	for _, f := range r.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

func (r *Report) add(sev Severity, code, toolName, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Severity: sev,
		Code:     code,
		Tool:     toolName,
		Detail:   fmt.Sprintf(format, args...),
	})
}

// Validator scans tool definitions against the operation registry and the
// generated manifests.
type Validator struct {
	ops *operation.Registry
}

// New returns a validator bound to a populated operation registry.
func New(ops *operation.Registry) *Validator {
	return &Validator{ops: ops}
}

// ScanAll runs every check over every tool. specs supply example and doc
// coverage; manifests map tool name to the raw manifest JSON (nil entries
// are reported, not skipped).
func (v *Validator) ScanAll(defs []*tool.Definition, specs []toolspec.Spec, manifests map[string][]byte) *Report {
	specsByName := map[string]*toolspec.Spec{}
	for i := range specs {
		specsByName[specs[i].Name] = &specs[i]
	}

	report := &Report{}
	for _, def := range defs {
		v.ScanTool(report, def, specsByName[def.Name], manifests[def.Name])
	}
	return report
}

// ScanTool appends the findings for one tool to the report. spec and
// manifest may be nil when the corresponding artifact is absent.
func (v *Validator) ScanTool(report *Report, def *tool.Definition, spec *toolspec.Spec, manifest []byte) {
	resolved := v.checkReferences(report, def)
	if resolved {
		v.checkParameters(report, def)
		v.checkManifest(report, def, manifest)
	}
	v.checkCoverage(report, def, spec)
}

// checkReferences verifies every operation the tool touches exists, and
// flags deprecated targets. Returns false when any reference is dangling.
func (v *Validator) checkReferences(report *Report, def *tool.Definition) bool {
	ok := true
	for _, ref := range def.OperationRefs() {
		op, err := v.ops.Lookup(ref)
		if err != nil {
			report.add(SeverityError, CodeMissingReference, def.Name,
				"operation %s is not registered", ref)
			ok = false
			continue
		}
		if op.Deprecated() {
			if op.ReplacedBy == "" {
				report.add(SeverityWarning, CodeMissingReplacement, def.Name,
					"operation %s is deprecated and names no replacement", ref)
			} else {
				report.add(SeverityWarning, CodeDeprecatedOp, def.Name,
					"operation %s is deprecated, use %s", ref, op.ReplacedBy)
			}
		}
	}
	return ok
}

// checkParameters re-derives the effective list and diffs it against the
// loaded definition, name by name and type by type.
func (v *Validator) checkParameters(report *Report, def *tool.Definition) {
	derived, err := tool.EffectiveParameters(def, v.ops)
	if err != nil {
		report.add(SeverityError, CodeParameterMismatch, def.Name,
			"re-derivation failed: %v", err)
		return
	}
	diffParameters(report, def.Name, CodeParameterMismatch, def.Parameters, derived)
}

// checkManifest diffs the generator-time snapshot against a live
// re-derivation. Drift means someone edited generated artifacts by hand or
// changed a schema without regenerating.
func (v *Validator) checkManifest(report *Report, def *tool.Definition, raw []byte) {
	if raw == nil {
		report.add(SeverityError, CodeManifestMissing, def.Name, "no parameter manifest")
		return
	}
	var m generator.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		report.add(SeverityError, CodeManifestDrift, def.Name, "manifest unreadable: %v", err)
		return
	}
	derived, err := tool.EffectiveParameters(def, v.ops)
	if err != nil {
		return // already reported by checkParameters
	}
	diffParameters(report, def.Name, CodeManifestDrift, m.Parameters, derived)
}

// checkCoverage emits the advisory findings: missing docs and examples.
func (v *Validator) checkCoverage(report *Report, def *tool.Definition, spec *toolspec.Spec) {
	if def.Description == "" {
		report.add(SeverityInfo, CodeMissingDoc, def.Name, "tool has no description")
	}
	for _, p := range def.Parameters {
		if p.Doc == "" {
			report.add(SeverityInfo, CodeMissingDoc, def.Name, "parameter %s has no doc", p.Name)
		}
	}
	if spec == nil || len(spec.Examples) == 0 {
		report.add(SeverityInfo, CodeMissingExample, def.Name, "no usage examples")
	}
}

// diffParameters compares two ordered lists. Name, requiredness and default
// disagreements report under code; type disagreements report as
// type_mismatch regardless of code.
func diffParameters(report *Report, toolName, code string, have, want []operation.ParameterDefinition) {
	haveByName := map[string]operation.ParameterDefinition{}
	for _, p := range have {
		haveByName[p.Name] = p
	}
	wantByName := map[string]operation.ParameterDefinition{}
	for _, p := range want {
		wantByName[p.Name] = p
	}

	for _, w := range want {
		h, ok := haveByName[w.Name]
		if !ok {
			report.add(SeverityError, code, toolName, "parameter %s is missing", w.Name)
			continue
		}
		if h.Type != w.Type {
			report.add(SeverityError, CodeTypeMismatch, toolName,
				"parameter %s is %s, expected %s", w.Name, h.Type, w.Type)
			continue
		}
		if h.Required != w.Required || h.Default != w.Default || h.HasDefault != w.HasDefault {
			report.add(SeverityError, code, toolName,
				"parameter %s disagrees on requiredness or default", w.Name)
		}
	}
	for _, h := range have {
		if _, ok := wantByName[h.Name]; !ok {
			report.add(SeverityError, code, toolName, "parameter %s is not derivable", h.Name)
		}
	}

	// Same names both ways is not enough: position matters too.
	if len(have) != len(want) {
		return
	}
	for i := range want {
		if _, ok := wantByName[have[i].Name]; !ok {
			return // extra parameter, already reported
		}
		if have[i].Name != want[i].Name {
			report.add(SeverityError, code, toolName,
				"parameter order drifted: position %d holds %s, expected %s", i, have[i].Name, want[i].Name)
			return
		}
	}
}
