// Package schema defines the types for declarative module definitions.
// A module is a self-contained description of one business capability:
// its screens, forms, workflows, actions, permissions, and navigation.
package schema

// ModuleDefinition is the root definition for a declarative module.
// Definitions are immutable after load and replaced wholesale on reload.
type ModuleDefinition struct {
	// Meta carries the module identity and display metadata.
	Meta ModuleMeta `yaml:"module" json:"module"`

	// Screens maps screen key to screen definition.
	Screens map[string]ScreenDefinition `yaml:"screens,omitempty" json:"screens,omitempty"`

	// Forms maps form key to form definition.
	Forms map[string]FormDefinition `yaml:"forms,omitempty" json:"forms,omitempty"`

	// Workflows maps workflow key to workflow definition.
	Workflows map[string]WorkflowDefinition `yaml:"workflows,omitempty" json:"workflows,omitempty"`

	// Actions maps action key to action definition.
	Actions map[string]ActionDefinition `yaml:"actions,omitempty" json:"actions,omitempty"`

	// Permissions lists the permission strings this module introduces.
	Permissions []string `yaml:"permissions,omitempty" json:"permissions,omitempty"`

	// Menu is the navigation tree contributed by this module.
	Menu []MenuEntry `yaml:"menu,omitempty" json:"menu,omitempty"`

	// Configurables declares tunable settings with their defaults.
	// Persisted overrides are merged in by the settings store.
	Configurables map[string]Configurable `yaml:"configurables,omitempty" json:"configurables,omitempty"`
}

// ModuleMeta identifies a module.
type ModuleMeta struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Author      string `yaml:"author,omitempty" json:"author,omitempty"`
	Icon        string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Color       string `yaml:"color,omitempty" json:"color,omitempty"`
}

// MenuEntry is one node in a module's navigation tree.
type MenuEntry struct {
	Label string `yaml:"label" json:"label"`

	// Screen references a screen key in the same module.
	Screen string `yaml:"screen,omitempty" json:"screen,omitempty"`

	Icon string `yaml:"icon,omitempty" json:"icon,omitempty"`

	// Permissions gates visibility; empty means visible to everyone.
	Permissions []string `yaml:"permissions,omitempty" json:"permissions,omitempty"`

	Children []MenuEntry `yaml:"children,omitempty" json:"children,omitempty"`
}

// Configurable declares one tunable module setting.
type Configurable struct {
	Label   string `yaml:"label,omitempty" json:"label,omitempty"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`
	Default any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// ID returns the module identifier.
func (m ModuleDefinition) ID() string {
	return m.Meta.ID
}

// HasScreen reports whether the module declares the given screen key.
func (m ModuleDefinition) HasScreen(key string) bool {
	_, ok := m.Screens[key]
	return ok
}

// SystemModules lists module IDs that cannot be disabled.
func SystemModules() []string {
	return []string{"core", "users", "company"}
}

// IsSystemModule reports whether the module ID names a system module.
func IsSystemModule(id string) bool {
	for _, s := range SystemModules() {
		if s == id {
			return true
		}
	}
	return false
}
