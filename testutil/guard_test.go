package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestInfraImportForbidden(t *testing.T) {
	cases := map[string]bool{
		"deckhistory/internal/infra/persistence/sqlite": true,
		"deckhistory/internal/blob":                     true,
		"deckhistory/internal/blobby":                   false,
		"deckhistory/internal/history":                  false,
		"database/sql":                                  true,
		"database/sql/driver":                           true,
		"encoding/json":                                 false,
	}
	for in, want := range cases {
		if got := InfraImportForbidden(in); got != want {
			t.Fatalf("InfraImportForbidden(%q)=%v want %v", in, got, want)
		}
	}
}

func TestThirdPartyImportForbidden(t *testing.T) {
	cases := map[string]bool{
		"go.uber.org/zap":        true,
		"github.com/spf13/cobra": true,
		"deckhistory/pkg/domain": false,
		"strings":                false,
		"encoding/json":          false,
	}
	for in, want := range cases {
		if got := ThirdPartyImportForbidden(in); got != want {
			t.Fatalf("ThirdPartyImportForbidden(%q)=%v want %v", in, got, want)
		}
	}
	both := AnyOf(InfraImportForbidden, ThirdPartyImportForbidden)
	if !both("go.uber.org/zap") || !both("database/sql") || both("strings") {
		t.Fatalf("AnyOf did not combine predicates")
	}
}

func writeSource(t *testing.T, dir, name, imports string) {
	t.Helper()
	src := fmt.Sprintf("package tmp\n\nimport (\n%s\n)\n", imports)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.go", `"fmt"`+"\n"+`"database/sql"`)
	writeSource(t, dir, "a_test.go", `"deckhistory/internal/blob"`)
	writeSource(t, dir, "b.go", `"go.uber.org/zap"`)

	viols, err := directImportViolations(dir, AnyOf(InfraImportForbidden, ThirdPartyImportForbidden))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{"database/sql (in a.go)", "go.uber.org/zap (in b.go)"}
	if len(viols) != len(want) || viols[0] != want[0] || viols[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, viols)
	}

	var r recorder
	failIfViolations(&r, "pure", viols)
	if r.msg == "" {
		t.Fatalf("expected violations to fail")
	}
	r = recorder{}
	failIfViolations(&r, "pure", nil)
	if r.msg != "" {
		t.Fatalf("expected no failure, got %q", r.msg)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InfraImportForbidden); err == nil {
		t.Fatalf("expected missing dir error")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.go"), []byte("package"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := directImportViolations(dir, InfraImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}
