// file: internal/ai/resolve.go
// version: 1.0.0
// guid: 4c7e1a9d-6b2f-48d5-a3e8-0f5d9c2b7a61

package ai

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/rodaddy/audiobook-pipeline/internal/catalog"
	"github.com/rodaddy/audiobook-pipeline/internal/metadata"
)

// Evidence is the embedded-tag side of the resolution input.
type Evidence struct {
	Author string
	Title  string
	Album  string
}

var (
	reAITitleJunk = regexp.MustCompile(`(?i)\s*\((?:The\s+)?Audio\s*Book\)|\s*\(Unabridged\)`)
	reDigitPick   = regexp.MustCompile(`[0-5]`)
)

// NeedsResolution decides whether the evidence warrants an AI call: the
// distinct non-placeholder authors across sources number anything other
// than exactly one.
func NeedsResolution(pathAuthor, tagAuthor, catalogAuthor string) bool {
	authors := make(map[string]bool)
	for _, a := range []string{pathAuthor, tagAuthor, catalogAuthor} {
		cleaned := strings.ToLower(strings.TrimSpace(a))
		if cleaned != "" && !metadata.IsPlaceholder(cleaned) {
			authors[cleaned] = true
		}
	}
	return len(authors) != 1
}

// Resolve asks the model to reconcile all metadata evidence into a final
// author/title/series/position. Returns ok=false when AI is disabled, the
// call fails, or the reply lacks an author line. Errors never propagate;
// callers fall back to non-AI evidence.
func (c *Client) Resolve(
	ctx context.Context,
	pathMeta metadata.ParsedMetadata,
	tagMeta Evidence,
	candidates []catalog.Candidate,
	sourceFilename string,
	sourceDirectory string,
) (metadata.ParsedMetadata, bool) {
	if !c.Enabled() {
		return metadata.ParsedMetadata{}, false
	}

	var evidence []string
	add := func(label, value string) {
		if value != "" {
			evidence = append(evidence, fmt.Sprintf("%s: %q", label, value))
		}
	}
	add("File path suggests author", pathMeta.Author)
	add("File path title", pathMeta.Title)
	add("File path series", pathMeta.Series)
	add("File path position", pathMeta.Position)
	add("Embedded tags artist", tagMeta.Author)
	add("Tag album", tagMeta.Album)
	add("Tag title", tagMeta.Title)
	add("Source filename", sourceFilename)
	add("Source directory", sourceDirectory)

	if len(candidates) > 0 {
		evidence = append(evidence, "", "Catalog search results:")
		for i, cand := range candidates {
			if i >= 5 {
				break
			}
			line := fmt.Sprintf("%d. %q by %s", i+1, cand.Title, cand.AuthorStr)
			if cand.Series != "" {
				line += fmt.Sprintf(" (Series: %s", cand.Series)
				if cand.Position != "" {
					line += " #" + cand.Position
				}
				line += ")"
			}
			if cand.Score > 0 {
				line += fmt.Sprintf(" [score: %.0f]", cand.Score)
			}
			evidence = append(evidence, line)
		}
	}

	if len(evidence) == 0 {
		return metadata.ParsedMetadata{}, false
	}

	// Random nonce defeats response caching at proxy layers, which would
	// otherwise replay one book's answer for another.
	prompt := fmt.Sprintf(
		"[ref:%08x] I'm organizing an audiobook file and need to determine the correct metadata. "+
			"Based on the evidence below, provide the correct:\n"+
			"- Author (first and last name)\n"+
			"- Title (book title, not series name)\n"+
			"- Series (if part of a series, otherwise empty)\n"+
			"- Position (book number in series, otherwise empty)\n\n"+
			"%s\n\n"+
			"Reply in this exact format (one per line, no extra text):\n"+
			"AUTHOR: <name>\n"+
			"TITLE: <title>\n"+
			"SERIES: <series or NONE>\n"+
			"POSITION: <number or NONE>",
		rand.Uint32(), strings.Join(evidence, "\n"))

	content, err := c.complete(ctx, prompt, 150)
	if err != nil {
		log.Printf("[WARN] ai: metadata resolution failed: %v", err)
		return metadata.ParsedMetadata{}, false
	}
	return ParseResolveResponse(content)
}

// Disambiguate asks the model to pick the matching catalog result.
// Returns the picked candidate, or ok=false for "none match" (a 0 reply,
// a non-numeric reply, or any failure).
func (c *Client) Disambiguate(
	ctx context.Context,
	candidates []catalog.Candidate,
	titleHint string,
	authorHint string,
) (catalog.Candidate, bool) {
	if !c.Enabled() || len(candidates) == 0 {
		return catalog.Candidate{}, false
	}

	var lines []string
	for i, cand := range candidates {
		if i >= 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %q by %s (ASIN: %s)", i+1, cand.Title, cand.AuthorStr, cand.ASIN))
	}

	prompt := fmt.Sprintf("I'm looking for the audiobook: %q", titleHint)
	if authorHint != "" {
		prompt += " by " + authorHint
	}
	prompt += fmt.Sprintf(
		"\n\nHere are the search results:\n%s\n\n"+
			"Which result (1-5) is the best match? Reply with ONLY the number, or 0 if none match. No explanation.",
		strings.Join(lines, "\n"))

	content, err := c.complete(ctx, prompt, 10)
	if err != nil {
		log.Printf("[WARN] ai: disambiguation failed: %v", err)
		return catalog.Candidate{}, false
	}

	m := reDigitPick.FindString(content)
	if m == "" || m == "0" {
		return catalog.Candidate{}, false
	}
	idx := int(m[0]-'0') - 1
	if idx >= len(candidates) {
		return catalog.Candidate{}, false
	}
	log.Printf("[DEBUG] ai: disambiguated to #%d %q", idx+1, candidates[idx].Title)
	return candidates[idx], true
}

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       shared.ChatModel(c.model),
		Temperature: param.NewOpt(0.0),
		MaxTokens:   param.NewOpt(maxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// ParseResolveResponse parses the AUTHOR/TITLE/SERIES/POSITION reply
// format. Field names are case-insensitive; quoted values are unquoted;
// NONE/UNKNOWN/N-A sentinels count as absent. A reply without an author
// is useless and reported as not-ok.
func ParseResolveResponse(content string) (metadata.ParsedMetadata, bool) {
	var result metadata.ParsedMetadata
	hasAuthor := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "AUTHOR:"):
			if val := fieldValue(line); val != "" && !strings.EqualFold(val, "unknown") {
				result.Author = val
				hasAuthor = true
			}
		case strings.HasPrefix(upper, "TITLE:"):
			if val := fieldValue(line); val != "" && !strings.EqualFold(val, "unknown") {
				result.Title = CleanAITitle(val)
			}
		case strings.HasPrefix(upper, "SERIES:"):
			if val := fieldValue(line); !isAbsent(val) {
				result.Series = val
			}
		case strings.HasPrefix(upper, "POSITION:"):
			if val := fieldValue(line); !isAbsent(val) {
				result.Position = metadata.NormalizePosition(val)
			}
		}
	}

	if !hasAuthor {
		return metadata.ParsedMetadata{}, false
	}
	return result, true
}

// CleanAITitle strips edition suffixes the model tends to copy from
// catalog listings.
func CleanAITitle(title string) string {
	return strings.TrimSpace(reAITitleJunk.ReplaceAllString(title, ""))
}

func fieldValue(line string) string {
	_, val, _ := strings.Cut(line, ":")
	val = strings.TrimSpace(val)
	val = strings.Trim(val, `"`)
	val = strings.Trim(val, "'")
	return strings.TrimSpace(val)
}

func isAbsent(val string) bool {
	switch strings.ToUpper(val) {
	case "", "NONE", "UNKNOWN", "N/A":
		return true
	}
	return false
}
