// Package planfile loads fetch plans from YAML files. File-backed plans are
// used for canned turns and for tests; the plan generator produces the same
// slot specs at runtime.
package planfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fairwaylabs/tripgraph"
)

// PlanFile is the on-disk form of a fetch plan.
type PlanFile struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Slots       []tripgraph.SlotSpec `yaml:"slots"`
}

// Loader loads a PlanFile from a source path.
type Loader interface {
	Load(source string) (*PlanFile, error)
	Format() string // e.g., "yaml"
}

// loaderRegistry holds registered Loaders by format name.
var loaderRegistry = make(map[string]Loader)

// RegisterLoader registers a new Loader for a given format.
func RegisterLoader(loader Loader) {
	loaderRegistry[loader.Format()] = loader
}

// GetLoader retrieves a loader by format name (e.g., "yaml").
func GetLoader(format string) (Loader, bool) {
	loader, ok := loaderRegistry[format]
	return loader, ok
}

// YAMLLoader implements Loader for YAML files.
type YAMLLoader struct{}

func (YAMLLoader) Load(path string) (*PlanFile, error) {
	return LoadPlanFile(path)
}

func (YAMLLoader) Format() string { return "yaml" }

func init() {
	RegisterLoader(YAMLLoader{})
}

// LoadPlanFile parses a YAML plan file.
func LoadPlanFile(path string) (*PlanFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan file: %w", err)
	}
	defer f.Close()
	var pf PlanFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}
	return &pf, nil
}

// Validate checks the plan file for cycles, on top of the structural checks
// NewFetchPlan performs. File-backed plans are authored by hand, so a cycle
// here is a mistake worth reporting at load time rather than letting the
// runtime deadlock detector absorb it.
func (pf *PlanFile) Validate() error {
	byID := make(map[string]*tripgraph.SlotSpec, len(pf.Slots))
	for i := range pf.Slots {
		byID[pf.Slots[i].ID] = &pf.Slots[i]
	}
	visited := make(map[string]bool, len(pf.Slots))
	stack := make(map[string]bool, len(pf.Slots))
	var hasCycle func(id string) bool
	hasCycle = func(id string) bool {
		if stack[id] {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		stack[id] = true
		if spec, ok := byID[id]; ok {
			for _, dep := range spec.Dependencies {
				if hasCycle(dep) {
					return true
				}
			}
		}
		stack[id] = false
		return false
	}
	for _, spec := range pf.Slots {
		if hasCycle(spec.ID) {
			return fmt.Errorf("cycle detected in plan at slot '%s'", spec.ID)
		}
	}
	return nil
}

// ToFetchPlan builds the executable plan, running the same structural
// validation planner output goes through.
func (pf *PlanFile) ToFetchPlan() (*tripgraph.FetchPlan, error) {
	return tripgraph.NewFetchPlan(pf.Slots)
}

// LoadAndValidate loads a plan file using the default loader (YAML),
// validates it, and returns an executable FetchPlan.
func LoadAndValidate(path string) (*tripgraph.FetchPlan, error) {
	loader, ok := GetLoader("yaml")
	if !ok {
		return nil, fmt.Errorf("no YAML plan loader registered")
	}
	pf, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	return pf.ToFetchPlan()
}
