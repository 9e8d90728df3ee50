package domain

// ComponentType tags a node with the kind of UI element it renders as.
// The tree core never interprets it.
type ComponentType string

const (
	ComponentButton    ComponentType = "Button"
	ComponentText      ComponentType = "Text"
	ComponentHeading   ComponentType = "Heading"
	ComponentParagraph ComponentType = "Paragraph"
	ComponentImage     ComponentType = "Image"
	ComponentLink      ComponentType = "Link"
	ComponentContainer ComponentType = "Container"
	ComponentRow       ComponentType = "Row"
	ComponentColumn    ComponentType = "Column"
	ComponentSection   ComponentType = "Section"
	ComponentInput     ComponentType = "Input"
	ComponentCheckbox  ComponentType = "Checkbox"
	ComponentSelect    ComponentType = "Select"
	ComponentForm      ComponentType = "Form"
	ComponentDataTable ComponentType = "DataTable"
	ComponentChart     ComponentType = "Chart"
)

// Props is the component-specific configuration bag (text, variant,
// binding descriptor, ...). Values are JSON values.
type Props map[string]any

// StylesData separates the base style map from per-viewport overrides.
// A flat style map is represented by Base alone.
type StylesData struct {
	ActiveProperties []string                     `json:"activeProperties,omitempty"`
	Base             map[string]string            `json:"base,omitempty"`
	Viewports        map[string]map[string]string `json:"viewports,omitempty"`
	Mode             string                       `json:"mode,omitempty"`
}

// ComponentNode is one element of a page tree.
// Children is only populated on container-like types.
type ComponentNode struct {
	ID       string          `json:"id"`
	Type     ComponentType   `json:"type"`
	Props    Props           `json:"props,omitempty"`
	Styles   *StylesData     `json:"stylesData,omitempty"`
	Children []ComponentNode `json:"children,omitempty"`
}

// Tree is the ordered forest of root-level nodes of a page.
type Tree []ComponentNode
