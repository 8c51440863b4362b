package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://vtree.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Input Errors (VT001-VT019)
	// ============================================

	"VT001": {
		Category: CategoryInput,
		Message:  "Invalid HTML input",
		Detail:   "The file could not be parsed as an HTML fragment.",
		DocURL:   docBase + "VT001",
	},
	"VT002": {
		Category: CategoryInput,
		Message:  "Invalid tree JSON",
		Detail:   "The file is not a valid JSON tree. Elements need a tag; text nodes use {\"text\": \"...\"}.",
		DocURL:   docBase + "VT002",
	},
	"VT003": {
		Category: CategoryInput,
		Message:  "Input file unreadable",
		Detail:   "The input file could not be opened or read.",
		DocURL:   docBase + "VT003",
	},
	"VT004": {
		Category: CategoryInput,
		Message:  "Empty input",
		Detail:   "The input contains no elements or text once comments and whitespace are dropped.",
		DocURL:   docBase + "VT004",
	},

	// ============================================
	// Reconcile Errors (VT020-VT039)
	// ============================================

	"VT020": {
		Category: CategoryReconcile,
		Message:  "Render create failed",
		Detail:   "The renderer could not materialize a node during mount, replace or append.",
		DocURL:   docBase + "VT020",
	},
	"VT021": {
		Category: CategoryReconcile,
		Message:  "Path resolution failed",
		Detail:   "A patch path did not resolve against the live rendering. The rendering and the stored tree have diverged.",
		DocURL:   docBase + "VT021",
	},
	"VT022": {
		Category: CategoryReconcile,
		Message:  "Render mutation failed",
		Detail:   "The renderer rejected an attribute, text or child mutation.",
		DocURL:   docBase + "VT022",
	},
	"VT023": {
		Category: CategoryReconcile,
		Message:  "Rendering mismatch after apply",
		Detail:   "Applying the computed patches did not produce the same output as rendering the new tree from scratch.",
		DocURL:   docBase + "VT023",
	},

	// ============================================
	// Protocol Errors (VT060-VT079)
	// ============================================

	"VT060": {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
		Detail:   "The message could not be decoded as a frame.",
		DocURL:   docBase + "VT060",
	},
	"VT061": {
		Category: CategoryProtocol,
		Message:  "Frame too large",
		Detail:   "The encoded payload exceeds the frame or buffer limit.",
		DocURL:   docBase + "VT061",
	},
	"VT062": {
		Category: CategoryProtocol,
		Message:  "Host not initialized",
		Detail:   "A message arrived before Initialize or after Cleanup.",
		DocURL:   docBase + "VT062",
	},

	// ============================================
	// Config Errors (VT120-VT139)
	// ============================================

	"VT120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file has invalid or missing values.",
		DocURL:   docBase + "VT120",
	},
	"VT121": {
		Category: CategoryConfig,
		Message:  "Configuration parse error",
		Detail:   "The configuration file is not valid JSON or YAML.",
		DocURL:   docBase + "VT121",
	},
	"VT122": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No vtree.json or vtree.yaml was found.",
		DocURL:   docBase + "VT122",
	},
	"VT123": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .yaml or .yml.",
		DocURL:   docBase + "VT123",
	},

	// ============================================
	// Storage Errors (VT140-VT159)
	// ============================================

	"VT140": {
		Category: CategoryStorage,
		Message:  "Snapshot store unavailable",
		Detail:   "The configured snapshot backend could not be opened.",
		DocURL:   docBase + "VT140",
	},
	"VT141": {
		Category: CategoryStorage,
		Message:  "Snapshot save failed",
		Detail:   "The current tree could not be written to the snapshot store.",
		DocURL:   docBase + "VT141",
	},

	// ============================================
	// CLI Errors (VT160-VT179)
	// ============================================

	"VT160": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
		DocURL:   docBase + "VT160",
	},
	"VT161": {
		Category: CategoryCLI,
		Message:  "File watch failed",
		Detail:   "The file watcher could not be started or reported an error.",
		DocURL:   docBase + "VT161",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
