// Package catalog holds the registry of experiment templates.
//
// A Catalog is constructed explicitly by the application root and shared by
// reference; there is no package-level registry. Templates are stored in
// insertion order and handed out as deep copies, so callers can never mutate
// a registered blueprint.
//
// Template packs can be loaded from YAML and hot-reloaded from disk with
// Watch. Templates derived with Customize survive reloads.
package catalog

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"venturelab/internal/domain"
)

// Overrides are the fields a caller may change when customizing a template.
// Nil or empty fields keep the base template's value.
type Overrides struct {
	Name               string                    `json:"name,omitempty" yaml:"name,omitempty"`
	HypothesisTemplate string                    `json:"hypothesis_template,omitempty" yaml:"hypothesis_template,omitempty"`
	SuccessCriteria    []domain.SuccessCriterion `json:"success_criteria,omitempty" yaml:"success_criteria,omitempty"`
	DurationDays       *int                      `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
	Cost               *float64                  `json:"cost,omitempty" yaml:"cost,omitempty"`
	RiskLevel          domain.RiskLevel          `json:"risk_level,omitempty" yaml:"risk_level,omitempty"`
	RequiredResources  []string                  `json:"required_resources,omitempty" yaml:"required_resources,omitempty"`
}

// Catalog is a concurrency-safe registry of experiment templates
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]domain.ExperimentTemplate
	order     []string
	custom    map[string]bool
	now       func() time.Time
}

// New creates a catalog holding the given templates in order
func New(templates ...domain.ExperimentTemplate) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[string]domain.ExperimentTemplate),
		custom:    make(map[string]bool),
		now:       time.Now,
	}
	if err := c.Replace(templates); err != nil {
		return nil, err
	}
	return c, nil
}

// Default creates a catalog seeded with the built-in templates
func Default() *Catalog {
	c, err := New(DefaultTemplates()...)
	if err != nil {
		// built-in templates are covered by tests
		panic(fmt.Sprintf("catalog: invalid default templates: %v", err))
	}
	return c
}

// Replace atomically swaps the loaded templates. Customized templates are
// kept after them unless the new set reuses their ID. Nothing changes if any
// template is invalid or an ID repeats.
func (c *Catalog) Replace(templates []domain.ExperimentTemplate) error {
	next := make(map[string]domain.ExperimentTemplate, len(templates))
	order := make([]string, 0, len(templates))
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := next[t.ID]; dup {
			return fmt.Errorf("duplicate template ID %s", t.ID)
		}
		next[t.ID] = t.Clone()
		order = append(order, t.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		if !c.custom[id] {
			continue
		}
		if _, reused := next[id]; reused {
			delete(c.custom, id)
			continue
		}
		next[id] = c.templates[id]
		order = append(order, id)
	}
	c.templates = next
	c.order = order
	return nil
}

// Get returns the template with the given ID
func (c *Catalog) Get(id string) (domain.ExperimentTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.templates[id]
	if !ok {
		return domain.ExperimentTemplate{}, domain.NewNotFound("template", id)
	}
	return t.Clone(), nil
}

// ForType returns the first registered template for an experiment type
func (c *Catalog) ForType(typ domain.ExperimentType) (domain.ExperimentTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		if t := c.templates[id]; t.Type == typ {
			return t.Clone(), nil
		}
	}
	return domain.ExperimentTemplate{}, domain.NewNotFound("template", string(typ))
}

// ForStage returns all templates for a validation stage in insertion order
func (c *Catalog) ForStage(stage domain.ValidationStage) []domain.ExperimentTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.ExperimentTemplate
	for _, id := range c.order {
		if t := c.templates[id]; t.Stage == stage {
			out = append(out, t.Clone())
		}
	}
	return out
}

// List returns every template in insertion order
func (c *Catalog) List() []domain.ExperimentTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.ExperimentTemplate, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.templates[id].Clone())
	}
	return out
}

// Len returns the number of registered templates
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Customize derives a new template from a base one. The result gets the ID
// "<id>_custom_<unix millis>" and is registered so it can be retrieved later.
func (c *Catalog) Customize(id string, o Overrides) (domain.ExperimentTemplate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, ok := c.templates[id]
	if !ok {
		return domain.ExperimentTemplate{}, domain.NewNotFound("template", id)
	}

	t := base.Clone()
	t.ID = id + "_custom_" + strconv.FormatInt(c.now().UnixMilli(), 10)
	for {
		if _, taken := c.templates[t.ID]; !taken {
			break
		}
		// two customizations inside the same millisecond
		t.ID += "_1"
	}

	if o.Name != "" {
		t.Name = o.Name
	}
	if o.HypothesisTemplate != "" {
		t.HypothesisTemplate = o.HypothesisTemplate
	}
	if len(o.SuccessCriteria) > 0 {
		t.SuccessCriteria = append([]domain.SuccessCriterion(nil), o.SuccessCriteria...)
	}
	if o.DurationDays != nil {
		t.DurationDays = *o.DurationDays
	}
	if o.Cost != nil {
		t.Cost = *o.Cost
	}
	if o.RiskLevel != "" {
		t.RiskLevel = o.RiskLevel
	}
	if len(o.RequiredResources) > 0 {
		t.RequiredResources = append([]string(nil), o.RequiredResources...)
	}

	if err := t.Validate(); err != nil {
		return domain.ExperimentTemplate{}, err
	}

	c.templates[t.ID] = t
	c.order = append(c.order, t.ID)
	c.custom[t.ID] = true
	return t.Clone(), nil
}
