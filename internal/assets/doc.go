// Package assets provides the notice templates (.docx) and CSS styles.
//
// # Loader Architecture
//
// The package implements a layered loading system:
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in assets)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// AssetResolver is the loader used by the generator. It tries the custom
// FilesystemLoader first and falls back to EmbeddedLoader when the asset is
// not found, so operators can override one asset and keep the rest.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css       # CSS styles (e.g., compact.css)
//	└── templates/
//	    └── {name}.docx      # Notice templates (e.g., rent_increase.docx)
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
