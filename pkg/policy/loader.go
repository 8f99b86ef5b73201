package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/aegis-labs/aegis-core/pkg/classification"
)

// bundleSchema validates the structural shape of a policy bundle before any
// rule-level validation runs. Malformed bundles are rejected here and never
// reach the engine.
const bundleSchema = `{
  "type": "object",
  "required": ["name", "version"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "field_redaction_rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["field_path", "strategy"],
        "additionalProperties": false,
        "properties": {
          "field_path": {"type": "string", "minLength": 1},
          "strategy": {"enum": ["remove", "mask", "mask_asterisks", "truncate"]},
          "required_clearance": {"type": "string"},
          "bypass_compartments": {"type": "array", "items": {"type": "string"}},
          "description": {"type": "string"}
        }
      }
    },
    "portion_redaction_rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["portion_name", "minimum_clearance", "strategy"],
        "additionalProperties": false,
        "properties": {
          "portion_name": {"type": "string", "minLength": 1},
          "portion_marking": {"type": "string"},
          "minimum_clearance": {"type": "string"},
          "strategy": {"enum": ["remove", "mask", "mask_asterisks", "truncate"]},
          "bypass_compartments": {"type": "array", "items": {"type": "string"}},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

var (
	compileSchemaOnce sync.Once
	compiledSchema    *jsonschema.Schema
	compileSchemaErr  error
)

func compiledBundleSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		compiledSchema, compileSchemaErr = jsonschema.CompileString("bundle.schema.json", bundleSchema)
	})
	return compiledSchema, compileSchemaErr
}

// bundleWire is the on-disk shape of a policy bundle.
type bundleWire struct {
	Name                  string            `json:"name" yaml:"name"`
	Version               string            `json:"version" yaml:"version"`
	Description           string            `json:"description,omitempty" yaml:"description,omitempty"`
	FieldRedactionRules   []fieldRuleWire   `json:"field_redaction_rules,omitempty" yaml:"field_redaction_rules,omitempty"`
	PortionRedactionRules []portionRuleWire `json:"portion_redaction_rules,omitempty" yaml:"portion_redaction_rules,omitempty"`
}

type fieldRuleWire struct {
	FieldPath          string   `json:"field_path" yaml:"field_path"`
	Strategy           string   `json:"strategy" yaml:"strategy"`
	RequiredClearance  string   `json:"required_clearance,omitempty" yaml:"required_clearance,omitempty"`
	BypassCompartments []string `json:"bypass_compartments,omitempty" yaml:"bypass_compartments,omitempty"`
	Description        string   `json:"description,omitempty" yaml:"description,omitempty"`
}

type portionRuleWire struct {
	PortionName        string   `json:"portion_name" yaml:"portion_name"`
	PortionMarking     string   `json:"portion_marking,omitempty" yaml:"portion_marking,omitempty"`
	MinimumClearance   string   `json:"minimum_clearance" yaml:"minimum_clearance"`
	Strategy           string   `json:"strategy" yaml:"strategy"`
	BypassCompartments []string `json:"bypass_compartments,omitempty" yaml:"bypass_compartments,omitempty"`
	Description        string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Loader loads policy bundles from JSON or YAML files.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a bundle loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadFile loads and validates a single policy bundle. The extension picks
// the decoder: .json, .yaml or .yml.
func (l *Loader) LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return l.LoadJSON(data)
	case ".yaml", ".yml":
		return l.LoadYAML(data)
	default:
		return nil, fmt.Errorf("policy: unsupported bundle format %q", filepath.Ext(path))
	}
}

// LoadJSON parses, schema-validates, and builds a policy from JSON bytes.
func (l *Loader) LoadJSON(data []byte) (*Policy, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("policy: parse bundle: %w", err)
	}
	if err := l.validateShape(generic); err != nil {
		return nil, err
	}

	var wire bundleWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("policy: decode bundle: %w", err)
	}
	return l.build(wire)
}

// LoadYAML parses, schema-validates, and builds a policy from YAML bytes.
func (l *Loader) LoadYAML(data []byte) (*Policy, error) {
	var decoded any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("policy: parse bundle: %w", err)
	}

	// The schema validator expects json.Unmarshal output, so round-trip the
	// YAML document through JSON before validating.
	jsonBytes, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("policy: normalize bundle: %w", err)
	}
	var generic any
	if err := json.Unmarshal(jsonBytes, &generic); err != nil {
		return nil, fmt.Errorf("policy: normalize bundle: %w", err)
	}
	if err := l.validateShape(generic); err != nil {
		return nil, err
	}

	var wire bundleWire
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("policy: decode bundle: %w", err)
	}
	return l.build(wire)
}

func (l *Loader) validateShape(generic any) error {
	schema, err := compiledBundleSchema()
	if err != nil {
		return fmt.Errorf("policy: compile bundle schema: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("policy: bundle failed schema validation: %w", err)
	}
	return nil
}

func (l *Loader) build(wire bundleWire) (*Policy, error) {
	if _, err := semver.NewVersion(wire.Version); err != nil {
		return nil, fmt.Errorf("policy: bundle version %q is not semver: %w", wire.Version, err)
	}

	fieldRules := make([]FieldRedactionRule, 0, len(wire.FieldRedactionRules))
	for _, w := range wire.FieldRedactionRules {
		rule := FieldRedactionRule{
			FieldPath:          w.FieldPath,
			Strategy:           Strategy(w.Strategy),
			BypassCompartments: toCompartments(w.BypassCompartments),
			Description:        w.Description,
		}
		if w.RequiredClearance != "" {
			level, err := classification.ParseLevel(w.RequiredClearance)
			if err != nil {
				// Policy authoring errors fail loudly; the most-restrictive
				// fallback is reserved for resource markings.
				return nil, err
			}
			rule.RequiredClearance = &level
		}
		fieldRules = append(fieldRules, rule)
	}

	portionRules := make([]PortionRedactionRule, 0, len(wire.PortionRedactionRules))
	for _, w := range wire.PortionRedactionRules {
		level, err := classification.ParseLevel(w.MinimumClearance)
		if err != nil {
			return nil, err
		}
		portionRules = append(portionRules, PortionRedactionRule{
			PortionName:        w.PortionName,
			PortionMarking:     w.PortionMarking,
			MinimumClearance:   level,
			Strategy:           Strategy(w.Strategy),
			BypassCompartments: toCompartments(w.BypassCompartments),
			Description:        w.Description,
		})
	}

	p, err := New(wire.Name, wire.Version, fieldRules, portionRules)
	if err != nil {
		return nil, err
	}

	l.logger.Info("policy bundle loaded",
		"name", p.Name(),
		"version", p.Version(),
		"hash", p.Hash(),
		"field_rules", len(fieldRules),
		"portion_rules", len(portionRules))
	return p, nil
}

func toCompartments(in []string) []classification.Compartment {
	if len(in) == 0 {
		return nil
	}
	out := make([]classification.Compartment, len(in))
	for i, s := range in {
		out[i] = classification.Compartment(s)
	}
	return out
}
