// file: internal/metadata/hints_test.go
// version: 1.0.0
// guid: 6d1a9f3c-4e8b-42d7-a5f0-8b3c6e1d9a47

package metadata

import "testing"

func TestExtractHints(t *testing.T) {
	tests := []struct {
		name string
		path string
		want SearchHints
	}{
		{
			name: "dir per book promotes grandparent",
			path: "/library/Brandon Sanderson/Elantris/Elantris.m4b",
			want: SearchHints{TitleHint: "Elantris", AuthorHint: "Brandon Sanderson", Query: "Brandon Sanderson Elantris"},
		},
		{
			name: "series numbers stripped",
			path: "/in/Frank Herbert/03 - Children of Dune.mp3",
			want: SearchHints{TitleHint: "Children of Dune", AuthorHint: "Frank Herbert", Query: "Frank Herbert Children of Dune"},
		},
		{
			name: "bracket numbering stripped",
			path: "/in/Foundation [03] Second Foundation/file.m4b",
			want: SearchHints{TitleHint: "file", AuthorHint: "Foundation Second Foundation", Query: "Foundation Second Foundation file"},
		},
		{
			name: "pipeline hash stripped",
			path: "/done/The Martian - a7edd490030561fb/The Martian - a7edd490030561fb.m4b",
			want: SearchHints{TitleHint: "The Martian", AuthorHint: "done", Query: "done The Martian"},
		},
		{
			name: "no parent",
			path: "Leviathan Wakes.m4b",
			want: SearchHints{TitleHint: "Leviathan Wakes", Query: "Leviathan Wakes"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractHints(tt.path)
			if got != tt.want {
				t.Errorf("ExtractHints(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestStripSeriesNumbers(t *testing.T) {
	tests := []struct{ in, want string }{
		{"03 - Children of Dune", "Children of Dune"},
		{"Foundation [03]", "Foundation"},
		{"Mistborn #1-The Final Empire", "Mistborn The Final Empire"},
		{"Discworld 14 Lords and Ladies", "Discworld Lords and Ladies"},
		{"No Numbers Here", "No Numbers Here"},
	}
	for _, tt := range tests {
		if got := stripSeriesNumbers(tt.in); got != tt.want {
			t.Errorf("stripSeriesNumbers(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
