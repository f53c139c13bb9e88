package fileorg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/storyforge/orchestrator/internal/apperr"
)

func writeSourceFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake bytes"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	return path
}

func TestOrganizeOutputLaysOutProjectJobDirectory(t *testing.T) {
	root := t.TempDir()
	src := t.TempDir()
	o, err := New(root)
	if err != nil {
		t.Fatalf("new organizer: %v", err)
	}

	srcFile := writeSourceFile(t, src, "out.png")
	dest, err := o.OrganizeOutput("job-1", "proj-1", []string{srcFile}, map[string]any{"seed": 42})
	if err != nil {
		t.Fatalf("organize output: %v", err)
	}
	if len(dest) != 1 {
		t.Fatalf("expected 1 destination path, got %d", len(dest))
	}
	expectedDir := filepath.Join(root, "projects", "proj-1", "job-1")
	if filepath.Dir(dest[0]) != expectedDir {
		t.Fatalf("expected file under %q, got %q", expectedDir, dest[0])
	}
	if filepath.Ext(dest[0]) != ".png" {
		t.Fatalf("expected .png extension preserved, got %q", dest[0])
	}

	sidecar := dest[0][:len(dest[0])-len(filepath.Ext(dest[0]))] + ".meta.json"
	if _, err := os.Stat(sidecar); err != nil {
		t.Fatalf("expected a .meta.json sidecar, got %v", err)
	}
}

func TestOrganizeOutputWithoutProjectUsesGeneralDir(t *testing.T) {
	root := t.TempDir()
	src := t.TempDir()
	o, _ := New(root)

	srcFile := writeSourceFile(t, src, "clip.mp4")
	dest, err := o.OrganizeOutput("job-2", "", []string{srcFile}, nil)
	if err != nil {
		t.Fatalf("organize output: %v", err)
	}
	expectedDir := filepath.Join(root, "general", "job-2")
	if filepath.Dir(dest[0]) != expectedDir {
		t.Fatalf("expected file under %q, got %q", expectedDir, dest[0])
	}
}

func TestOrganizeOutputRejectsInvalidProjectID(t *testing.T) {
	root := t.TempDir()
	o, _ := New(root)
	_, err := o.OrganizeOutput("job-1", "proj/../etc", nil, nil)
	if apperr.KindOf(err) != apperr.BadInput {
		t.Fatalf("expected BadInput for an invalid project_id, got %v", err)
	}
}

func TestOrganizeOutputRejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	o, _ := New(root)
	_, err := o.OrganizeOutput("job-1", "proj-1", []string{"../../etc/passwd"}, nil)
	if apperr.KindOf(err) != apperr.BadInput {
		t.Fatalf("expected BadInput for a path traversal attempt, got %v", err)
	}
}

func TestClassifyByExtension(t *testing.T) {
	cases := map[string]string{
		"a.png": "image", "a.jpeg": "image", "a.mp4": "video", "a.webm": "video",
		"a.gif": "gif", "a.unknown": "image",
	}
	for name, want := range cases {
		if got := classify(name); got != want {
			t.Errorf("classify(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestGetJobFilesFiltersByJobAndProject(t *testing.T) {
	root := t.TempDir()
	src := t.TempDir()
	o, _ := New(root)

	f1 := writeSourceFile(t, src, "a.png")
	f2 := writeSourceFile(t, src, "b.png")
	o.OrganizeOutput("job-1", "proj-1", []string{f1}, nil)
	o.OrganizeOutput("job-2", "proj-1", []string{f2}, nil)

	files := o.GetJobFiles("job-1", "proj-1")
	if len(files) != 1 {
		t.Fatalf("expected 1 file for job-1, got %d", len(files))
	}

	if got := o.GetJobFiles("job-1", "other-project"); len(got) != 0 {
		t.Fatalf("expected 0 files for a mismatched project, got %d", len(got))
	}
}

func TestGetProjectSummaryAggregatesFilesAndJobs(t *testing.T) {
	root := t.TempDir()
	src := t.TempDir()
	o, _ := New(root)

	f1 := writeSourceFile(t, src, "a.png")
	f2 := writeSourceFile(t, src, "b.png")
	o.OrganizeOutput("job-1", "proj-1", []string{f1}, nil)
	o.OrganizeOutput("job-2", "proj-1", []string{f2}, nil)

	summary := o.GetProjectSummary("proj-1")
	if summary.FileCount != 2 {
		t.Fatalf("expected file_count=2, got %d", summary.FileCount)
	}
	if summary.JobCount != 2 {
		t.Fatalf("expected job_count=2, got %d", summary.JobCount)
	}
	if summary.TotalBytes == 0 {
		t.Fatal("expected a nonzero total_bytes")
	}
}

func TestCleanupOldFilesRemovesOnlyExpiredEntries(t *testing.T) {
	root := t.TempDir()
	src := t.TempDir()
	o, _ := New(root)

	f := writeSourceFile(t, src, "a.png")
	dest, _ := o.OrganizeOutput("job-1", "proj-1", []string{f}, nil)

	result := o.CleanupOldFiles(-time.Hour) // cutoff in the future: everything qualifies
	if result.DeletedFiles != 1 {
		t.Fatalf("expected 1 deleted file, got %d", result.DeletedFiles)
	}
	if _, err := os.Stat(dest[0]); !os.IsNotExist(err) {
		t.Fatal("expected the organized file to be removed from disk")
	}
	if len(o.GetJobFiles("job-1", "proj-1")) != 0 {
		t.Fatal("expected the index entry to be removed")
	}
}

func TestCleanupOldFilesKeepsRecentEntries(t *testing.T) {
	root := t.TempDir()
	src := t.TempDir()
	o, _ := New(root)

	f := writeSourceFile(t, src, "a.png")
	o.OrganizeOutput("job-1", "proj-1", []string{f}, nil)

	result := o.CleanupOldFiles(time.Hour) // cutoff in the past: nothing qualifies yet
	if result.DeletedFiles != 0 {
		t.Fatalf("expected 0 deleted files for a recent entry, got %d", result.DeletedFiles)
	}
}

func TestMigrateLegacyFilesReorganizesAndSkipsUnknownExtensions(t *testing.T) {
	root := t.TempDir()
	legacy := t.TempDir()
	o, _ := New(root)

	writeSourceFile(t, legacy, "job-99.png")
	writeSourceFile(t, legacy, "notes.txt")

	result := o.MigrateLegacyFiles(legacy)
	if result.MigratedFiles != 1 {
		t.Fatalf("expected 1 migrated file, got %d", result.MigratedFiles)
	}
	if result.SkippedFiles != 1 {
		t.Fatalf("expected 1 skipped file, got %d", result.SkippedFiles)
	}
	if _, err := os.Stat(filepath.Join(legacy, "job-99.png")); !os.IsNotExist(err) {
		t.Fatal("expected the legacy file to be removed after migration")
	}
}
