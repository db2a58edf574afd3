package submit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdrelay/mdrelay/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedOutcome pre-writes the terminal artifact for a file so the poll loop
// resolves immediately.
func seedOutcome(t *testing.T, mem *store.Memory, name string, succeed bool) {
	t.Helper()
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if succeed {
		require.NoError(t, mem.Put(context.Background(), "output/"+stem+".md", "text/markdown; charset=utf-8", strings.NewReader("# "+stem)))
		return
	}
	require.NoError(t, mem.Put(context.Background(), "output/"+stem+".error.txt", "text/plain; charset=utf-8", strings.NewReader("engine failure for "+name)))
}

func TestRunBatch_FailuresAreIsolated(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	outDir := t.TempDir()
	inDir := t.TempDir()

	names := []string{"ok.pdf", "bad1.docx", "bad2.pdf"}
	var paths []string
	for _, n := range names {
		p := filepath.Join(inDir, n)
		require.NoError(t, os.WriteFile(p, []byte(n), 0o644))
		paths = append(paths, p)
	}
	seedOutcome(t, mem, "ok.pdf", true)
	seedOutcome(t, mem, "bad1.docx", false)
	seedOutcome(t, mem, "bad2.pdf", false)

	var results []JobResult
	failed := newSubmitter(mem, outDir).RunBatch(ctx, paths, 3, func(res JobResult) {
		results = append(results, res)
	})

	assert.Equal(t, 2, failed)
	require.Len(t, results, 3)

	byPath := map[string]JobResult{}
	for _, r := range results {
		byPath[r.Path] = r
	}

	okRes := byPath[paths[0]]
	require.NoError(t, okRes.Err)
	data, err := os.ReadFile(okRes.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "# ok", string(data), "successful job unaffected by failing siblings")

	var cf *ConversionFailedError
	require.ErrorAs(t, byPath[paths[1]].Err, &cf)
	assert.Contains(t, cf.Message, "bad1.docx")
	require.ErrorAs(t, byPath[paths[2]].Err, &cf)
	assert.Contains(t, cf.Message, "bad2.pdf")
}

func TestRunBatch_SequentialContinuesPastFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	outDir := t.TempDir()
	inDir := t.TempDir()

	bad := filepath.Join(inDir, "bad.pdf")
	ok := filepath.Join(inDir, "ok.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(ok, []byte("o"), 0o644))
	seedOutcome(t, mem, "bad.pdf", false)
	seedOutcome(t, mem, "ok.pdf", true)

	var order []string
	failed := newSubmitter(mem, outDir).RunBatch(ctx, []string{bad, ok}, 1, func(res JobResult) {
		order = append(order, res.Path)
	})

	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{bad, ok}, order, "failure must not stop subsequent jobs")
	_, err := os.Stat(filepath.Join(outDir, "ok.md"))
	assert.NoError(t, err)
}

func TestRunBatch_NoPaths(t *testing.T) {
	mem := store.NewMemory()
	failed := newSubmitter(mem, t.TempDir()).RunBatch(context.Background(), nil, 4, nil)
	assert.Zero(t, failed)
}
