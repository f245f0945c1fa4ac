// Package onnxrt wraps github.com/yalue/onnxruntime_go with the execution
// provider selection, library discovery, and session lifecycle the detection
// server needs (spec §4.4/§4.5, SPEC_FULL §11).
package onnxrt

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/yalue/onnxruntime_go"
)

const (
	osLinux    = "linux"
	osDarwin   = "darwin"
	osWindows  = "windows"
	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

// GPUOptions controls execution-provider selection for a session.
type GPUOptions struct {
	ForceCPU bool
	Index    int
}

// configureExecutionProviders appends a CUDA execution provider unless
// ForceCPU is set. If CUDA is unavailable on this host it returns
// usedGPU=false with no error, leaving the session on CPU (§4.4: "falls
// back to CPU on any provider error"); Open logs that fallback.
func configureExecutionProviders(opts *onnxruntime_go.SessionOptions, gpu GPUOptions) (usedGPU bool, err error) {
	if gpu.ForceCPU {
		return false, nil
	}

	cudaOpts, err := onnxruntime_go.NewCUDAProviderOptions()
	if err != nil {
		// CUDA provider unavailable in this build/host; run on CPU.
		return false, nil
	}
	defer func() {
		_ = cudaOpts.Destroy()
	}()

	if updateErr := cudaOpts.Update(map[string]string{
		"device_id": fmt.Sprintf("%d", gpu.Index),
	}); updateErr != nil {
		return false, nil
	}

	if appendErr := opts.AppendExecutionProviderCUDA(cudaOpts); appendErr != nil {
		return false, nil
	}
	return true, nil
}

func getSystemLibraryPaths() []string {
	return []string{
		"/opt/onnxruntime/gpu/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
}

func getLibraryName() (string, error) {
	switch runtime.GOOS {
	case osLinux:
		return libLinux, nil
	case osDarwin:
		return libDarwin, nil
	case osWindows:
		return libWindows, nil
	default:
		return "", fmt.Errorf("onnxrt: unsupported operating system: %s", runtime.GOOS)
	}
}

func trySetLibraryPath(path string) bool {
	if _, err := os.Stat(path); err == nil {
		onnxruntime_go.SetSharedLibraryPath(path)
		return true
	}
	return false
}

// SetLibraryPath locates the onnxruntime shared library, checking well-known
// system locations before falling back to a path relative to the executable.
func SetLibraryPath() error {
	for _, path := range getSystemLibraryPaths() {
		if trySetLibraryPath(path) {
			return nil
		}
	}

	libName, err := getLibraryName()
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("onnxrt: resolving executable path: %w", err)
	}
	local := filepath.Join(filepath.Dir(exe), "onnxruntime", "lib", libName)
	if trySetLibraryPath(local) {
		return nil
	}
	return fmt.Errorf("onnxrt: onnxruntime shared library not found (tried system paths and %s)", local)
}

// EnsureEnvironment sets the library path (once) and initializes the global
// ONNX Runtime environment if it has not been initialized yet.
func EnsureEnvironment() error {
	if !onnxruntime_go.IsInitialized() {
		if err := SetLibraryPath(); err != nil {
			return err
		}
		if err := onnxruntime_go.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnxrt: initializing ONNX Runtime environment: %w", err)
		}
	}
	return nil
}
