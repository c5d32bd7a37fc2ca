package engine

import (
	"fmt"
	"sort"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
)

// Registrar is the subset of a Temporal worker (or test environment) the
// registry installs handlers on.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Registry maps names to workflow and activity handlers. It is built once at
// process start and handed to the worker; nothing is looked up globally.
type Registry struct {
	workflows  map[string]interface{}
	activities map[string]interface{}
}

func NewRegistry() *Registry {
	return &Registry{
		workflows:  make(map[string]interface{}),
		activities: make(map[string]interface{}),
	}
}

// AddWorkflow registers a workflow function under name.
func (r *Registry) AddWorkflow(name string, fn interface{}) error {
	if name == "" || fn == nil {
		return fmt.Errorf("register workflow: name and handler are required")
	}
	if _, ok := r.workflows[name]; ok {
		return fmt.Errorf("register workflow: %q already registered", name)
	}
	r.workflows[name] = fn
	return nil
}

// AddActivity registers an activity function under name.
func (r *Registry) AddActivity(name string, fn interface{}) error {
	if name == "" || fn == nil {
		return fmt.Errorf("register activity: name and handler are required")
	}
	if _, ok := r.activities[name]; ok {
		return fmt.Errorf("register activity: %q already registered", name)
	}
	r.activities[name] = fn
	return nil
}

func (r *Registry) Workflow(name string) (interface{}, bool) {
	fn, ok := r.workflows[name]
	return fn, ok
}

func (r *Registry) Activity(name string) (interface{}, bool) {
	fn, ok := r.activities[name]
	return fn, ok
}

// Workflows returns the registered workflow names in sorted order.
func (r *Registry) Workflows() []string {
	return sortedKeys(r.workflows)
}

// Activities returns the registered activity names in sorted order.
func (r *Registry) Activities() []string {
	return sortedKeys(r.activities)
}

// ApplyTo registers every handler by its explicit name.
func (r *Registry) ApplyTo(reg Registrar) {
	for _, name := range r.Workflows() {
		reg.RegisterWorkflowWithOptions(r.workflows[name], workflow.RegisterOptions{Name: name})
	}
	for _, name := range r.Activities() {
		reg.RegisterActivityWithOptions(r.activities[name], activity.RegisterOptions{Name: name})
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
