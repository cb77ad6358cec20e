package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "The configuration file passed with --config does not exist or cannot be read.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Config file parse error",
		Detail:   "The configuration file is not valid for its format.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Unsupported config format",
		Detail:   "Configuration files must end in .json, .yaml, .yml or .toml.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid cache capacity",
		Detail:   "cache.capacity is the number of memo results kept before LRU eviction and must be positive.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid log level",
		Detail:   "log.level must be one of debug, info, warn or error.",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Invalid log format",
		Detail:   "log.format must be text or json.",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Invalid inspector address",
		Detail:   "inspect.address must be a host:port pair.",
	},
	"E107": {
		Category: CategoryConfig,
		Message:  "Invalid event buffer size",
		Detail:   "inspect.buffer_size is the number of recent events kept for the inspector and must be positive.",
	},
	"E108": {
		Category: CategoryConfig,
		Message:  "Invalid benchmark parameters",
		Detail:   "bench.chain_length, bench.fan_out, bench.writes and bench.iterations must all be positive.",
	},
	"E109": {
		Category: CategoryConfig,
		Message:  "Invalid drive interval",
		Detail:   "inspect.drive_interval is how often serve writes to its workload and must be positive.",
	},

	// ============================================
	// CLI Errors (E200-E299)
	// ============================================

	"E200": {
		Category: CategoryCLI,
		Message:  "Unknown workload",
		Detail:   "The requested workload does not exist.",
	},
	"E201": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command-line flag has a value that cannot be used.",
	},
	"E202": {
		Category: CategoryCLI,
		Message:  "Engine invariant violated",
		Detail:   "The reactive engine detected a broken internal invariant while running a workload. This is a bug.",
	},
	"E203": {
		Category: CategoryCLI,
		Message:  "Workload check failed",
		Detail:   "A workload produced a value different from the one it expects.",
	},

	// ============================================
	// Inspect Errors (E300-E399)
	// ============================================

	"E300": {
		Category: CategoryInspect,
		Message:  "Inspector failed to start",
		Detail:   "The inspector could not listen on the configured address. It may already be in use.",
	},
	"E301": {
		Category: CategoryInspect,
		Message:  "Inspector stopped unexpectedly",
		Detail:   "The inspector HTTP server returned an error while serving.",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
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
