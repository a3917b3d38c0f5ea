package linker

import (
	"github.com/wasmlink/jsld/errors"
	"github.com/wasmlink/jsld/js"
)

// DefaultExterns returns the identifiers the generated script is always
// allowed to reference freely: the runtime dependency surface of the UMD
// wrapper and the late-binder.
func DefaultExterns() map[string]bool {
	return map[string]bool{
		"WebAssembly": true,
		"Reflect":     true,
		"Proxy":       true,
		"Object":      true,
		"Promise":     true,
		"Error":       true,
		"global":      true,
		"self":        true,
		"module":      true,
		"exports":     true,
		"require":     true,
		"define":      true,
		"__dirname":   true,
		"undefined":   true,
	}
}

// ExternsFromSource parses an externs file and returns its top-level
// declared names. Free references inside the externs file itself are not
// checked; the file exists only to name additional legal globals.
func ExternsFromSource(path, src string) (map[string]bool, error) {
	prog, err := js.Parse(path, src)
	if err != nil {
		return nil, errors.Parse(path, err)
	}
	scope := js.Analyze(prog)
	out := make(map[string]bool, len(scope.Declared))
	for name := range scope.Declared {
		out[name] = true
	}
	return out, nil
}
