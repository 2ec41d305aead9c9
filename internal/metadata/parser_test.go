// file: internal/metadata/parser_test.go
// version: 1.1.0
// guid: 4f82c6d1-9e3a-47b5-a0d2-7c1e8b5f3a96

package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParsePatterns(t *testing.T) {
	tests := []struct {
		name string
		path string
		want ParsedMetadata
	}{
		{
			name: "structured marker path",
			path: "/media/Brandon Sanderson-Mistborn-#1-The Final Empire/audio.m4b",
			want: ParsedMetadata{Author: "Brandon Sanderson", Series: "Mistborn", Position: "1", Title: "The Final Empire"},
		},
		{
			name: "marker path without series",
			path: "/media/Andy Weir-#1-The Martian/file.mp3",
			want: ParsedMetadata{Author: "Andy Weir", Position: "1", Title: "The Martian"},
		},
		{
			name: "marker position normalized",
			path: "/media/Frank Herbert-Dune-#01-Dune/audio.m4b",
			want: ParsedMetadata{Author: "Frank Herbert", Series: "Dune", Position: "1", Title: "Dune"},
		},
		{
			name: "malformed split marker",
			path: "/media/Frank Herbert-Dune-#-2-Dune Messiah/audio.m4b",
			want: ParsedMetadata{Author: "Frank Herbert", Series: "Dune", Position: "2", Title: "Dune Messiah"},
		},
		{
			name: "series number dash title",
			path: "/incoming/Deathgate Cycle 1 - Dragon Wing/file.mp3",
			want: ParsedMetadata{Series: "Deathgate Cycle", Position: "1", Title: "Dragon Wing"},
		},
		{
			name: "series number title no dash",
			path: "/incoming/Discworld 14 Lords and Ladies/file.mp3",
			want: ParsedMetadata{Series: "Discworld", Position: "14", Title: "Lords and Ladies"},
		},
		{
			name: "bracketed series position",
			path: "/incoming/Foundation [03] Second Foundation/file.mp3",
			want: ParsedMetadata{Series: "Foundation", Position: "3", Title: "Second Foundation"},
		},
		{
			name: "author dash series grandparent",
			path: "/src/Robin Hobb - Farseer Trilogy/Assassins Apprentice/track.mp3",
			want: ParsedMetadata{Author: "Robin Hobb", Series: "Farseer Trilogy", Title: "Assassins Apprentice"},
		},
		{
			name: "grandparent author with generic basename",
			path: "/library/Brandon Sanderson/Elantris/book.m4b",
			want: ParsedMetadata{Author: "Brandon Sanderson", Title: "Elantris"},
		},
		{
			name: "parenthesized series suffix",
			path: "/in/Dragon Wing (Deathgate Cycle, Book 1)/file.mp3",
			want: ParsedMetadata{Series: "Deathgate Cycle", Position: "1", Title: "Dragon Wing"},
		},
		{
			name: "year in parens becomes position",
			path: "/in/The Hobbit (1977)/file.mp3",
			want: ParsedMetadata{Position: "1977", Title: "The Hobbit"},
		},
		{
			name: "pipeline hash stripped",
			path: "/done/The Martian - a7edd490030561fb/The Martian - a7edd490030561fb.m4b",
			want: ParsedMetadata{Title: "The Martian"},
		},
		{
			name: "unabridged suffix stripped",
			path: "/s/Project Hail Mary (Unabridged)/file.mp3",
			want: ParsedMetadata{Title: "Project Hail Mary"},
		},
		{
			name: "audiobook label not a series",
			path: "/s/Hyperion - Audiobook/file.mp3",
			want: ParsedMetadata{Title: "Hyperion"},
		},
		{
			name: "dash space artifact repaired",
			path: "/s/Food- A Love Story/file.mp3",
			want: ParsedMetadata{Title: "Food A Love Story"},
		},
		{
			name: "author dash title split",
			path: "/s/Jim Gaffigan-Dad Is Fat/file.mp3",
			want: ParsedMetadata{Author: "Jim Gaffigan", Title: "Dad Is Fat"},
		},
		{
			name: "bare filename only",
			path: "Leviathan Wakes.m4b",
			want: ParsedMetadata{Title: "Leviathan Wakes"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.path, "")
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseAuthorOnlyFallback(t *testing.T) {
	dir := t.TempDir()
	bookDir := filepath.Join(dir, "Terry Pratchett")
	if err := os.MkdirAll(bookDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Guards Guards - a7edd490030561fb.mp3", "cover.jpg"} {
		if err := os.WriteFile(filepath.Join(bookDir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := Parse(filepath.Join(bookDir, "Terry Pratchett.m4b"), bookDir)
	if got.Author != "Terry Pratchett" {
		t.Errorf("author = %q, want %q", got.Author, "Terry Pratchett")
	}
	if got.Title != "Guards Guards" {
		t.Errorf("title = %q, want %q", got.Title, "Guards Guards")
	}
}

func TestLooksLikeAuthor(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Brandon Sanderson", true},
		{"Ursula K. Le Guin", true},
		{"Mistborn", false},
		{"The Expanse", false},
		{"Discworld Collection", false},
		{"Book 14", false},
		{"Output", false},
	}
	for _, tt := range tests {
		if got := LooksLikeAuthor(tt.name); got != tt.want {
			t.Errorf("LooksLikeAuthor(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNormalizePosition(t *testing.T) {
	tests := []struct{ in, want string }{
		{"01", "1"},
		{"1", "1"},
		{"0", "0"},
		{"", ""},
		{"2.5", "2.5"},
		{"1977", "1977"},
	}
	for _, tt := range tests {
		if got := NormalizePosition(tt.in); got != tt.want {
			t.Errorf("NormalizePosition(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPlaceholder(t *testing.T) {
	for _, s := range []string{"Unknown", "various artists", "_unsorted", "N/A", ""} {
		if !IsPlaceholder(s) {
			t.Errorf("IsPlaceholder(%q) = false, want true", s)
		}
	}
	if IsPlaceholder("Brandon Sanderson") {
		t.Error("IsPlaceholder(real author) = true, want false")
	}
}
