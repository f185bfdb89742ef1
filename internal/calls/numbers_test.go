package calls

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadNumbersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbers.txt")
	content := "+15550001111\n\n  +15550002222  \n\t\n+15550003333\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	numbers, err := LoadNumbersFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"+15550001111", "+15550002222", "+15550003333"}
	if len(numbers) != len(want) {
		t.Fatalf("numbers = %v, want %v", numbers, want)
	}
	for i := range want {
		if numbers[i] != want[i] {
			t.Fatalf("numbers[%d] = %q, want %q", i, numbers[i], want[i])
		}
	}
}

func TestLoadNumbersFileMissing(t *testing.T) {
	if _, err := LoadNumbersFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadNumbersFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\n\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	numbers, err := LoadNumbersFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(numbers) != 0 {
		t.Fatalf("numbers = %v, want none", numbers)
	}
}
