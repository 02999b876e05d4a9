package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/morezero/operation-engine/pkg/registry"
)

const mainTestPrefix = "cmd/opengine:main_test"

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{{"serve"}, {"migrate", "up"}, {"migrate", "status"}, {"ensure-db"}, {"clear"}, {"seed"}, {"operations"}} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Errorf("%s - command %v not found: %v", mainTestPrefix, path, err)
		}
	}
	if !strings.Contains(root.Long, "DATABASE_URL") {
		t.Errorf("%s - help should mention DATABASE_URL", mainTestPrefix)
	}
}

func TestOperationsCommand_Builtins(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"operations"})

	if err := root.Execute(); err != nil {
		t.Fatalf("%s - operations failed: %v", mainTestPrefix, err)
	}
	for _, want := range []string{"NAME", "Ping(Entity content)", "Wait(Entity content, Int32 ms)", "async-value"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("%s - output missing %q:\n%s", mainTestPrefix, want, out.String())
		}
	}
}

func TestOperationsCommand_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	manifest := `name: extra
version: 1.0.0
operations:
  - name: Shout
    handler: builtin.echo
    parameters:
      - name: text
        type: string
`
	if err := os.WriteFile(path, []byte(manifest), 0o600); err != nil {
		t.Fatal(err)
	}

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"operations", "--json", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("%s - operations failed: %v", mainTestPrefix, err)
	}

	var infos []registry.OperationInfo
	if err := json.Unmarshal(out.Bytes(), &infos); err != nil {
		t.Fatalf("%s - invalid JSON output: %v", mainTestPrefix, err)
	}
	names := map[string]bool{}
	for _, info := range infos {
		names[info.Name] = true
	}
	if !names["Shout"] || !names["Ping"] {
		t.Errorf("%s - expected file and builtin operations, got %v", mainTestPrefix, names)
	}
}

func TestSeedCommand_RequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	root := newRootCommand()
	root.SetArgs([]string{"seed"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("%s - seed without DATABASE_URL = %v", mainTestPrefix, err)
	}
}
