package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunStorageCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml",
		"logger:\n  level: error\ndatabase:\n  path: "+filepath.Join(dir, "fridge.db")+"\n")

	catalogPath, err := filepath.Abs("../../internal/catalog/testdata/catalog.yaml")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "help", args: []string{"--help"}, want: 0},
		{name: "unknown flag", args: []string{"--nope"}, want: 2},
		{name: "migrate", args: []string{"-c", cfgPath, "migrate"}, want: 0},
		{name: "import", args: []string{"-c", cfgPath, "import", "--file", catalogPath}, want: 0},
		{name: "import twice", args: []string{"-c", cfgPath, "import", "--file", catalogPath}, want: 0},
		{name: "import missing file", args: []string{"-c", cfgPath, "import", "--file", filepath.Join(dir, "nope.yaml")}, want: 1},
		{name: "serve without token", args: []string{"-c", cfgPath, "serve"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(context.Background(), tt.args); got != tt.want {
				t.Errorf("run(%q) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
