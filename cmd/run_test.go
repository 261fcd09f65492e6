package cmd

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/secgate/pkg/wrappers"
)

func TestPrepareReportsRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "gitleaks.json")
	if err := os.WriteFile(stale, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	fresh := filepath.Join(dir, "nested", "zap.json")

	tasks := []wrappers.Wrapper{
		wrappers.Gitleaks(".", stale),
		wrappers.ZAPBaseline("http://localhost:8080", filepath.Dir(fresh), filepath.Base(fresh)),
	}
	if err := prepareReports(tasks); err != nil {
		t.Fatalf("prepareReports: %v", err)
	}
	if _, err := os.Stat(stale); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("stale report still present: %v", err)
	}
	if fi, err := os.Stat(filepath.Dir(fresh)); err != nil || !fi.IsDir() {
		t.Errorf("report directory not created: %v", err)
	}
}
