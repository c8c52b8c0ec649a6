package discover

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.pyx", "print(1)")
	writeFile(t, dir, "lib/util.pyx", "def helper():\n    pass\n")
	// Other extensions are ignored
	writeFile(t, dir, "lib/util.js", "")
	writeFile(t, dir, "readme.txt", "hello")
	writeFile(t, dir, ".hidden.pyx", "secret")

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	want := []string{filepath.Join("lib", "util.pyx"), "main.pyx"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Files = %v, want %v", files, want)
	}
}

func TestFilesSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.pyx", "pass")
	writeFile(t, dir, "node_modules/pkg/index.pyx", "pass")
	writeFile(t, dir, "vendor/dep.pyx", "pass")
	writeFile(t, dir, ".cache/tmp.pyx", "pass")

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0] != "main.pyx" {
		t.Errorf("expected only main.pyx, got %v", files)
	}
}

func TestFilesGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, ".gitignore", "out/\n*_gen.pyx\n")
	writeFile(t, dir, "app.pyx", "pass")
	writeFile(t, dir, "models_gen.pyx", "pass")
	writeFile(t, dir, "out/app.pyx", "pass")
	writeFile(t, dir, "src/models.pyx", "pass")

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	want := []string{"app.pyx", filepath.Join("src", "models.pyx")}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Files = %v, want %v", files, want)
	}
}

func TestFilesSingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "one.pyx", "pass")

	files, err := Files(filepath.Join(dir, "one.pyx"))
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0] != "one.pyx" {
		t.Errorf("Files = %v", files)
	}
}

func TestFilesMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := Files(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing root")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		src, ext, want string
	}{
		{"app.pyx", ".js", "app.js"},
		{filepath.Join("lib", "util.pyx"), ".cjs", filepath.Join("lib", "util.cjs")},
		{"noext", ".js", "noext.js"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.src, tt.ext); got != tt.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tt.src, tt.ext, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
