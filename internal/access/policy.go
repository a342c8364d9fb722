package access

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SectionPolicy describes who may write a section and whether writes
// require the patient access code.
type SectionPolicy struct {
	WritableBy []Role
	CodeGated  bool
}

// Writable reports whether role r may create, update or delete records in
// the section.
func (p SectionPolicy) Writable(r Role) bool {
	for _, allowed := range p.WritableBy {
		if allowed == r {
			return true
		}
	}
	return false
}

// PolicyTable maps every section to its write policy. One table drives the
// create, update and delete paths.
type PolicyTable map[Section]SectionPolicy

// Lookup returns the policy for s and whether s is known to the table.
func (t PolicyTable) Lookup(s Section) (SectionPolicy, bool) {
	p, ok := t[s]
	return p, ok
}

// GatedSections returns the code-gated sections in sorted order.
func (t PolicyTable) GatedSections() []Section {
	var out []Section
	for s, p := range t {
		if p.CodeGated {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultPolicyTable returns the built-in ICU section policy.
func DefaultPolicyTable() PolicyTable {
	all := []Role{RoleNurse, RoleDoctor, RoleAdmin}

	t := PolicyTable{
		SectionDoctorNotes: {WritableBy: []Role{RoleDoctor}},
	}
	for _, s := range []Section{
		SectionVitals,
		SectionMedications,
		SectionIntakeOutput,
		SectionVentilator,
		SectionProceduresLines,
		SectionLabsImaging,
		SectionClinicalNotes,
	} {
		t[s] = SectionPolicy{WritableBy: all, CodeGated: true}
	}
	for _, s := range []Section{
		SectionNeurological,
		SectionBloodGlucose,
		SectionNursingAssessment,
		SectionBradenScale,
		SectionNursingActivities,
		SectionNursingNotes,
	} {
		t[s] = SectionPolicy{WritableBy: all}
	}
	return t
}

type policyFile struct {
	Sections map[string]struct {
		WritableBy []string `yaml:"writable_by"`
		CodeGated  bool     `yaml:"code_gated"`
	} `yaml:"sections"`
}

// LoadPolicyTable reads a section policy table from a YAML file. Every known
// section must be present and every role must be known.
func LoadPolicyTable(path string) (PolicyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read section policy: %w", err)
	}
	return ParsePolicyTable(data)
}

// ParsePolicyTable is LoadPolicyTable for in-memory YAML.
func ParsePolicyTable(data []byte) (PolicyTable, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse section policy: %w", err)
	}

	t := make(PolicyTable, len(f.Sections))
	for name, entry := range f.Sections {
		s := Section(name)
		if !s.Known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSection, name)
		}
		p := SectionPolicy{CodeGated: entry.CodeGated}
		for _, raw := range entry.WritableBy {
			r, ok := ParseRole(raw)
			if !ok {
				return nil, fmt.Errorf("%w: %q in section %s", ErrUnknownRole, raw, name)
			}
			p.WritableBy = append(p.WritableBy, r)
		}
		t[s] = p
	}

	for _, s := range Sections {
		if _, ok := t[s]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrIncompletePolicy, s)
		}
	}
	return t, nil
}
