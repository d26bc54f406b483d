package removal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"gateway/internal/domain"
	"gateway/internal/infra"
)

const wasmProviderName = "wasm"

// Exports the removal module must provide. remove_background returns the
// output location packed as (ptr << 32) | len.
const (
	exportMemory  = "memory"
	exportAlloc   = "alloc"
	exportDealloc = "dealloc"
	exportRemove  = "remove_background"
)

// WASMRemover runs a background-removal model compiled to WebAssembly. The
// module is compiled once; every call gets a fresh instance, so requests share
// no linear memory.
type WASMRemover struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	logger   *infra.Logger
}

// LoadWASMRemover reads the module from disk and compiles it.
func LoadWASMRemover(ctx context.Context, path string, logger *infra.Logger) (*WASMRemover, error) {
	module, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wasm: read module: %w", err)
	}
	return NewWASMRemover(ctx, module, logger)
}

// NewWASMRemover compiles module and checks its exports.
func NewWASMRemover(ctx context.Context, module []byte, logger *infra.Logger) (*WASMRemover, error) {
	if len(module) == 0 {
		return nil, errors.New("wasm: module is empty")
	}
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("wasm: instantiate wasi: %w", err)
	}
	compiled, err := rt.CompileModule(ctx, module)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("wasm: compile module: %w", err)
	}
	if err := checkExports(compiled); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return &WASMRemover{runtime: rt, compiled: compiled, logger: logger}, nil
}

func checkExports(compiled wazero.CompiledModule) error {
	funcs := compiled.ExportedFunctions()
	for _, name := range []string{exportAlloc, exportDealloc, exportRemove} {
		if _, ok := funcs[name]; !ok {
			return fmt.Errorf("wasm: module does not export %q", name)
		}
	}
	if _, ok := compiled.ExportedMemories()[exportMemory]; !ok {
		return fmt.Errorf("wasm: module does not export %q", exportMemory)
	}
	return nil
}

// Name fulfils Remover.
func (w *WASMRemover) Name() string {
	return wasmProviderName
}

// Remove fulfils Remover.
func (w *WASMRemover) Remove(ctx context.Context, req domain.RemovalRequest) (*domain.ImageResult, error) {
	if len(req.Image) == 0 {
		return nil, domain.ErrImageRequired
	}
	mod, err := w.runtime.InstantiateModule(ctx, w.compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions("_initialize"))
	if err != nil {
		return nil, domain.NewUpstreamError(wasmProviderName, fmt.Errorf("instantiate: %w", err))
	}
	defer mod.Close(ctx)

	out, err := invoke(ctx, mod, req.Image)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, domain.NewUpstreamError(wasmProviderName, ctxErr)
		}
		return nil, domain.NewUpstreamError(wasmProviderName, err)
	}
	w.logger.Debug().Int("in", len(req.Image)).Int("out", len(out)).Msg("wasm: removed background")
	return &domain.ImageResult{Data: out, ContentType: domain.PNG, Provider: wasmProviderName}, nil
}

// Close releases the runtime and every compiled artifact.
func (w *WASMRemover) Close(ctx context.Context) error {
	if w == nil || w.runtime == nil {
		return nil
	}
	return w.runtime.Close(ctx)
}

func invoke(ctx context.Context, mod api.Module, input []byte) ([]byte, error) {
	alloc := mod.ExportedFunction(exportAlloc)
	dealloc := mod.ExportedFunction(exportDealloc)
	remove := mod.ExportedFunction(exportRemove)
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.New("module has no memory")
	}

	size := uint64(len(input))
	res, err := alloc.Call(ctx, size)
	if err != nil {
		return nil, fmt.Errorf("alloc: %w", err)
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return nil, fmt.Errorf("alloc of %d bytes returned a null pointer", len(input))
	}
	defer func() { _, _ = dealloc.Call(ctx, uint64(ptr), size) }()

	if !mem.Write(ptr, input) {
		return nil, fmt.Errorf("input of %d bytes does not fit module memory", len(input))
	}
	res, err = remove.Call(ctx, uint64(ptr), size)
	if err != nil {
		return nil, fmt.Errorf("remove_background: %w", err)
	}
	outPtr, outLen := uint32(res[0]>>32), uint32(res[0])
	if outLen == 0 {
		return nil, errors.New("module returned an empty image")
	}
	view, ok := mem.Read(outPtr, outLen)
	if !ok {
		return nil, fmt.Errorf("output range %d+%d outside module memory", outPtr, outLen)
	}
	return bytes.Clone(view), nil
}

var _ Remover = (*WASMRemover)(nil)
