package routing

import (
	"fmt"
	"io"
	"os"

	rbac "github.com/bohemiyan/erp-rbac"
	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Rules []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	Pattern  string                 `yaml:"pattern"`
	Resource string                 `yaml:"resource"`
	Action   string                 `yaml:"action"`
	Files    map[string]overrideDoc `yaml:"files"`
}

type grantDoc struct {
	Resource string `yaml:"resource"`
	Action   string `yaml:"action"`
}

// overrideDoc is either a scalar ("skip" or an action name) or a mapping
// with "any" alternatives and a "then" action.
type overrideDoc struct {
	scalar string
	Any    []grantDoc `yaml:"any"`
	Then   string     `yaml:"then"`
}

func (o *overrideDoc) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		o.scalar = value.Value
		return nil
	}
	type plain overrideDoc
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*o = overrideDoc(p)
	return nil
}

// LoadRules parses a YAML rule table:
//
//	rules:
//	  - pattern: /hr/salary
//	    resource: salary_records
//	    action: view_all
//	    files:
//	      salary_edit: edit_all
//	      salary_print_styles: skip
//	      salary_slip:
//	        any:
//	          - {resource: salary_records, action: view_all}
//	          - {resource: salary_records, action: view_own}
//	        then: view_own
func LoadRules(r io.Reader) ([]Rule, error) {
	var doc ruleFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: parse route rules: %v", rbac.ErrConfiguration, err)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for _, d := range doc.Rules {
		action, err := parseAction(d.Action, rbac.ActionViewAll)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", rbac.ErrConfiguration, d.Pattern, err)
		}
		rule := Rule{Pattern: d.Pattern, Resource: d.Resource, Action: action}
		if len(d.Files) > 0 {
			rule.Files = make(map[string]Override, len(d.Files))
		}
		for name, od := range d.Files {
			o, err := od.toOverride()
			if err != nil {
				return nil, fmt.Errorf("%w: rule %q file %q: %v", rbac.ErrConfiguration, d.Pattern, name, err)
			}
			rule.Files[name] = o
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRulesFile reads LoadRules input from path.
func LoadRulesFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open route rules: %v", rbac.ErrConfiguration, err)
	}
	defer f.Close()
	return LoadRules(f)
}

func (o overrideDoc) toOverride() (Override, error) {
	if o.scalar != "" {
		if o.scalar == "skip" {
			return Skip(), nil
		}
		a, err := rbac.ParseAction(o.scalar)
		if err != nil {
			return Override{}, err
		}
		return Use(a), nil
	}

	then, err := parseAction(o.Then, rbac.ActionViewAll)
	if err != nil {
		return Override{}, err
	}
	alts := make([]rbac.Grant, 0, len(o.Any))
	for _, gd := range o.Any {
		a, err := rbac.ParseAction(gd.Action)
		if err != nil {
			return Override{}, err
		}
		alts = append(alts, rbac.Grant{Resource: gd.Resource, Action: a})
	}
	return AnyOf(then, alts...), nil
}

func parseAction(name string, fallback rbac.Action) (rbac.Action, error) {
	if name == "" {
		return fallback, nil
	}
	return rbac.ParseAction(name)
}
