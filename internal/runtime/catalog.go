package runtime

import (
	"fmt"
	"sort"

	"github.com/parleyhq/parley/internal/compiler"
	"github.com/parleyhq/parley/pkg/domain"
)

// CompiledFlow pairs a flow definition with its validated graph.
type CompiledFlow struct {
	Def   *domain.FlowDefinition
	Graph *compiler.Graph
}

// Catalog holds every compiled flow, keyed by name. Compilation happens once
// at construction; a definition that fails never becomes dispatchable.
type Catalog struct {
	flows map[string]*CompiledFlow
}

// NewCatalog compiles all definitions eagerly and fails on the first invalid
// one, so hosts refuse to start with a broken flow set.
func NewCatalog(defs []domain.FlowDefinition) (*Catalog, error) {
	c := &Catalog{flows: make(map[string]*CompiledFlow, len(defs))}
	for i := range defs {
		def := defs[i]
		if def.Name == "" {
			return nil, fmt.Errorf("flow %d has no name", i)
		}
		if _, dup := c.flows[def.Name]; dup {
			return nil, fmt.Errorf("duplicate flow name %q", def.Name)
		}
		g, err := compiler.Compile(def.Name, def.Steps)
		if err != nil {
			return nil, err
		}
		c.flows[def.Name] = &CompiledFlow{Def: &def, Graph: g}
	}
	return c, nil
}

// Get looks up a compiled flow by name.
func (c *Catalog) Get(name string) (*CompiledFlow, bool) {
	cf, ok := c.flows[name]
	return cf, ok
}

// Names returns the catalog's flow names, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.flows))
	for name := range c.flows {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Definitions returns the flow definitions, sorted by name.
func (c *Catalog) Definitions() []domain.FlowDefinition {
	out := make([]domain.FlowDefinition, 0, len(c.flows))
	for _, name := range c.Names() {
		out = append(out, *c.flows[name].Def)
	}
	return out
}
