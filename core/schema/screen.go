package schema

// ScreenType is the closed set of navigable view types.
type ScreenType string

const (
	ScreenList      ScreenType = "list"
	ScreenDetail    ScreenType = "detail"
	ScreenForm      ScreenType = "form"
	ScreenDashboard ScreenType = "dashboard"
	ScreenCustom    ScreenType = "custom"
)

// IsValidScreenType reports whether t is a declared screen type.
func IsValidScreenType(t ScreenType) bool {
	switch t {
	case ScreenList, ScreenDetail, ScreenForm, ScreenDashboard, ScreenCustom:
		return true
	default:
		return false
	}
}

// ScreenDefinition describes one navigable view within a module.
type ScreenDefinition struct {
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Type        ScreenType `yaml:"type" json:"type"`

	// Path is the screen's route template. It may contain at most one
	// {id} placeholder, which matches a single path segment.
	Path string `yaml:"path" json:"path"`

	// ShowInNav controls whether navigation menus surface this screen.
	ShowInNav *bool `yaml:"show_in_nav,omitempty" json:"show_in_nav,omitempty"`

	// CreateScreen names the screen to navigate to for record creation
	// (list screens only).
	CreateScreen string `yaml:"create_screen,omitempty" json:"create_screen,omitempty"`

	// Endpoint overrides the data endpoint for this screen.
	Endpoint       string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	ListEndpoint   string `yaml:"list_endpoint,omitempty" json:"list_endpoint,omitempty"`
	DetailEndpoint string `yaml:"detail_endpoint,omitempty" json:"detail_endpoint,omitempty"`

	// Permissions required to open this screen; empty means unrestricted.
	Permissions []string `yaml:"permissions,omitempty" json:"permissions,omitempty"`

	ListConfig   *ListConfig   `yaml:"list_config,omitempty" json:"list_config,omitempty"`
	DetailConfig *DetailConfig `yaml:"detail_config,omitempty" json:"detail_config,omitempty"`

	// Component names the frontend component for custom screens.
	Component string `yaml:"component,omitempty" json:"component,omitempty"`
}

// ListConfig configures a list screen.
type ListConfig struct {
	Columns          []string    `yaml:"columns" json:"columns"`
	SearchableFields []string    `yaml:"searchable_fields,omitempty" json:"searchable_fields,omitempty"`
	Sortable         bool        `yaml:"sortable,omitempty" json:"sortable,omitempty"`
	Filterable       bool        `yaml:"filterable,omitempty" json:"filterable,omitempty"`
	Paginated        bool        `yaml:"paginated,omitempty" json:"paginated,omitempty"`
	PageSize         int         `yaml:"page_size,omitempty" json:"page_size,omitempty"`
	Selectable       bool        `yaml:"selectable,omitempty" json:"selectable,omitempty"`
	RowActions       []RowAction `yaml:"row_actions,omitempty" json:"row_actions,omitempty"`
}

// RowAction is an action offered per list row.
type RowAction struct {
	Label string `yaml:"label" json:"label"`

	// Action references an action key in the same module.
	Action string `yaml:"action,omitempty" json:"action,omitempty"`

	// NavigateTo is a path template to open instead of dispatching an
	// action. {id} is substituted from the row's record.
	NavigateTo string `yaml:"navigate_to,omitempty" json:"navigate_to,omitempty"`

	Icon        string   `yaml:"icon,omitempty" json:"icon,omitempty"`
	Confirm     string   `yaml:"confirm,omitempty" json:"confirm,omitempty"`
	Permissions []string `yaml:"permissions,omitempty" json:"permissions,omitempty"`
}

// DetailConfig configures a detail screen.
type DetailConfig struct {
	// Form references a form key used to render the record.
	Form string `yaml:"form,omitempty" json:"form,omitempty"`

	ShowMetadata bool `yaml:"show_metadata,omitempty" json:"show_metadata,omitempty"`

	Sidebar        []SidebarWidget `yaml:"sidebar,omitempty" json:"sidebar,omitempty"`
	Actions        []string        `yaml:"actions,omitempty" json:"actions,omitempty"`
	RelatedRecords []RelatedRecord `yaml:"related_records,omitempty" json:"related_records,omitempty"`
}

// SidebarWidget describes one widget in a detail screen's sidebar.
type SidebarWidget struct {
	Type     string `yaml:"type" json:"type"`
	Title    string `yaml:"title,omitempty" json:"title,omitempty"`
	Workflow string `yaml:"workflow,omitempty" json:"workflow,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// RelatedRecord describes a related-record section on a detail screen.
type RelatedRecord struct {
	Title    string   `yaml:"title" json:"title"`
	Endpoint string   `yaml:"endpoint" json:"endpoint"`
	Columns  []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	Screen   string   `yaml:"screen,omitempty" json:"screen,omitempty"`
}

// NavVisible reports whether the screen should appear in navigation.
// Screens are visible by default.
func (s ScreenDefinition) NavVisible() bool {
	if s.ShowInNav == nil {
		return true
	}
	return *s.ShowInNav
}
