package assets

// Built-in asset names.
const (
	DefaultTemplateName = "rent_increase"
	DefaultStyleName    = "default"
)

// BuiltinStyles lists the embedded style names.
var BuiltinStyles = []string{DefaultStyleName, "compact"}

// AssetLoader defines the contract for loading CSS styles and notice templates.
type AssetLoader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadStyle(name string) (string, error)

	// LoadTemplate loads a .docx template by name (without extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadTemplate(name string) ([]byte, error)
}
