// Package file loads flow definitions from YAML files, the format flow
// authors actually write in. The engine itself only ever sees decoded
// structs.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/parleyhq/parley/pkg/domain"
)

// LoadFlows reads flow definitions from a YAML file, or from every .yaml and
// .yml file in a directory (sorted by name, so load order is stable).
func LoadFlows(path string) ([]domain.FlowDefinition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading flow path: %w", err)
	}
	if !info.IsDir() {
		return loadFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading flow directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var flows []domain.FlowDefinition
	for _, name := range names {
		loaded, err := loadFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		flows = append(flows, loaded...)
	}
	if len(flows) == 0 {
		return nil, fmt.Errorf("no flow definitions found under %s", path)
	}
	return flows, nil
}

func loadFile(path string) ([]domain.FlowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	flows, err := ParseFlows(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return flows, nil
}

// ParseFlows decodes YAML into flow definitions. The document may be a single
// flow, a list of flows, or a mapping with a top-level "flows" list.
func ParseFlows(data []byte) ([]domain.FlowDefinition, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	var raw []any
	switch v := doc.(type) {
	case []any:
		raw = v
	case map[string]any:
		if list, ok := v["flows"].([]any); ok {
			raw = list
		} else {
			raw = []any{v}
		}
	default:
		return nil, fmt.Errorf("unexpected top-level yaml type %T", doc)
	}

	flows := make([]domain.FlowDefinition, 0, len(raw))
	for i, item := range raw {
		flow, err := decodeFlow(item)
		if err != nil {
			return nil, fmt.Errorf("flow %d: %w", i, err)
		}
		flows = append(flows, flow)
	}
	return flows, nil
}

// decodeFlow maps loosely typed YAML data onto the definition structs,
// tolerating scalars where YAML authors get types slightly wrong (a bare
// 1000 where a string is declared, and the like).
func decodeFlow(item any) (domain.FlowDefinition, error) {
	var flow domain.FlowDefinition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &flow,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return flow, err
	}
	if err := dec.Decode(item); err != nil {
		return flow, err
	}
	if flow.Name == "" {
		return flow, fmt.Errorf("flow has no name")
	}
	return flow, nil
}
