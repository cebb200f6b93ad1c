package fs

import (
	"reflect"
	"testing"
)

func TestListProjects_CreatesRoot(t *testing.T) {
	s, _ := newTestService(t)

	projects, err := s.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("expected no projects, got %v", projects)
	}
	if !dirExists(t, s, testRoot) {
		t.Error("expected root to be created")
	}
}

func dirExists(t *testing.T, s *Service, path string) bool {
	t.Helper()
	info, err := s.fs.Stat(path)
	return err == nil && info.IsDir()
}

func TestListProjects_OnlyVisibleFolders(t *testing.T) {
	s, _ := newTestService(t)
	for _, dir := range []string{"bass", "kickdrum", ".git", "lead"} {
		if err := s.fs.MkdirAll(testRoot+"/"+dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, s, testRoot+"/stray.flp", "x")
	writeFile(t, s, testRoot+"/.DS_Store", "x")

	projects, err := s.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}

	want := []string{"bass", "kickdrum", "lead"}
	if !reflect.DeepEqual(projects, want) {
		t.Errorf("got %v, want %v", projects, want)
	}
}

func TestListVersions_MissingProjectIsEmpty(t *testing.T) {
	s, _ := newTestService(t)

	versions, err := s.ListVersions("ghost")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("expected empty list, got %v", versionNames(versions))
	}
}

func TestListVersions_Ordering(t *testing.T) {
	s, _ := newTestService(t)
	dir := testRoot + "/kick"
	for _, name := range []string{
		"kick_2024-01-05_08-00.flp",
		"kick_weird.flp",
		"kick.flp",
		"kick_2024-02-10_22-30.flp",
		"kick_2023-12-31_23-59.flp",
		"Backup 3 (overwritten at 2h15).flp",
		"kick_2024-01-05_08-00.txt",
		"render.wav",
	} {
		writeFile(t, s, dir+"/"+name, "data")
	}

	versions, err := s.ListVersions("kick")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}

	want := []string{
		"kick.flp",
		"kick_2024-02-10_22-30.flp",
		"kick_2024-01-05_08-00.flp",
		"kick_2023-12-31_23-59.flp",
		"Backup 3 (overwritten at 2h15).flp",
		"kick_weird.flp",
	}
	if got := versionNames(versions); !reflect.DeepEqual(got, want) {
		t.Errorf("order:\n got  %v\n want %v", got, want)
	}

	if !versions[0].Present {
		t.Error("first version should be the present one")
	}
	if !versions[2].HasNote {
		t.Error("kick_2024-01-05_08-00.flp should report its note")
	}
	if versions[4].HasTimestamp() {
		t.Error("unparsable names should have no timestamp")
	}
}

func TestListVersions_WithoutPresent(t *testing.T) {
	s, _ := newTestService(t)
	writeFile(t, s, testRoot+"/pad/pad_2024-01-01_00-00.flp", "a")

	versions, err := s.ListVersions("pad")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 || versions[0].Present {
		t.Errorf("unexpected versions %+v", versions)
	}
}

func TestListVersions_InvalidName(t *testing.T) {
	s, _ := newTestService(t)
	if _, err := s.ListVersions("../etc"); err == nil {
		t.Error("expected validation error for path-like project name")
	}
}
