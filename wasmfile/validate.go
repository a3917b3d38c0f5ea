package wasmfile

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
)

// Validate compiles the binary with wazero, rejecting modules the engine
// considers malformed. Compilation does not resolve imports, so modules
// with unresolved imports still validate.
func Validate(ctx context.Context, data []byte) error {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		return fmt.Errorf("wasm validation: %w", err)
	}
	return compiled.Close(ctx)
}
