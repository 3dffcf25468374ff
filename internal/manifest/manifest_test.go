package manifest

import (
	"path/filepath"
	"runtime"
	"testing"
)

func testdataPath(name string) string {
	_, f, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(f), "testdata", name)
}

func TestLoadFromPath_YAML(t *testing.T) {
	m, err := LoadFromPath(testdataPath("batch.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(m.Documents) != 2 || m.Parallel != 2 {
		t.Fatalf("want 2 documents and parallel 2, got %+v", m)
	}
	if m.Documents[0].Path != testdataPath("solar.txt") {
		t.Errorf("relative path not resolved: %q", m.Documents[0].Path)
	}
	if m.Documents[1].Reference != "https://grants.example.gov/submissions/4471" {
		t.Errorf("second reference: got %q", m.Documents[1].Reference)
	}
}

func TestLoadFromPath_JSONList(t *testing.T) {
	m, err := LoadFromPath(testdataPath("batch.json"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(m.Documents) != 2 || m.Documents[1].Reference != "submission-4471" {
		t.Errorf("got %+v", m)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(testdataPath("nope.yaml")); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestLoad_DetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"json object", `{"documents":[{"path":"/a.txt"}]}`, 1},
		{"json list", `["/a.txt", "/b.md"]`, 2},
		{"yaml list", "- /a.txt\n- path: /b.md\n", 2},
		{"yaml mapping", "documents:\n  - /a.txt\n", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Load([]byte(tc.data), "")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(m.Documents) != tc.want {
				t.Errorf("got %d documents, want %d", len(m.Documents), tc.want)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"empty", "", ".yaml"},
		{"no documents", "documents: []\n", ".yaml"},
		{"blank path", `{"documents":[{"path":" "}]}`, ".json"},
		{"negative parallel", "parallel: -1\ndocuments: [a.txt]\n", ".yml"},
		{"bad json", `{"documents":`, ".json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load([]byte(tc.data), tc.ext); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOpen(t *testing.T) {
	m, err := LoadFromPath(testdataPath("batch.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	docs, err := m.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("want 2 docs, got %d", len(docs))
	}
	if docs[0].Filename != "solar.txt" || len(docs[0].Data) == 0 {
		t.Errorf("first doc: %+v", docs[0])
	}
	if docs[1].Reference != "https://grants.example.gov/submissions/4471" || docs[1].Filename != "housing.md" {
		t.Errorf("second doc: reference %q filename %q", docs[1].Reference, docs[1].Filename)
	}

	m.Documents = append(m.Documents, Entry{Path: testdataPath("missing.txt")})
	if _, err := m.Open(); err == nil {
		t.Error("expected error for missing document")
	}
}
