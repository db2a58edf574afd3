package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mdrelay/mdrelay/internal/config"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	bootstrapOnce sync.Once
	bootstrapErr  error
)

// Bootstrap establishes writable cache and config directories for the engine
// and its libraries. It must run before the first engine use: function
// instances mount a read-only filesystem everywhere except the temp dir, and
// pdfcpu otherwise tries to create its config under the user's home.
// Safe to call repeatedly; only the first call does work.
func Bootstrap() error {
	bootstrapOnce.Do(func() {
		root := config.Env("MDRELAY_CACHE_ROOT", filepath.Join(os.TempDir(), "mdrelay-cache"))
		if err := os.MkdirAll(root, 0o755); err != nil {
			bootstrapErr = fmt.Errorf("create cache root %s: %w", root, err)
			return
		}
		if _, ok := os.LookupEnv("XDG_CACHE_HOME"); !ok {
			os.Setenv("XDG_CACHE_HOME", filepath.Join(root, ".cache"))
		}
		if err := api.EnsureDefaultConfigAt(filepath.Join(root, "pdfcpu")); err != nil {
			bootstrapErr = fmt.Errorf("prepare pdfcpu config dir: %w", err)
		}
	})
	return bootstrapErr
}
