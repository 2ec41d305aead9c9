// file: internal/audit/stale.go
// version: 1.0.0
// guid: b7f04d29-6e1a-48c3-95d7-2c8e4a61f903

package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// Media-server API shapes (Plex-compatible JSON).
type serverSections struct {
	MediaContainer struct {
		Directory []struct {
			Key   string `json:"key"`
			Title string `json:"title"`
		} `json:"Directory"`
	} `json:"MediaContainer"`
}

type serverItems struct {
	MediaContainer struct {
		Metadata []struct {
			Title            string `json:"title"`
			ParentTitle      string `json:"parentTitle"`
			GrandparentTitle string `json:"grandparentTitle"`
			Media            []struct {
				Part []struct {
					File string `json:"file"`
				} `json:"Part"`
			} `json:"Media"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}

// CheckStaleServerEntries queries the media server for audiobook items
// whose metadata looks broken (no author at any level). Skipped with an
// info finding when no token is configured.
func (a *Auditor) CheckStaleServerEntries() []Finding {
	if a.MediaServerToken == "" || a.MediaServerURL == "" {
		return []Finding{{
			Check:    "stale",
			Severity: SeverityInfo,
			Message:  "skipped: no media server token configured",
		}}
	}

	var sections serverSections
	if err := a.serverGet("/library/sections", &sections); err != nil {
		return []Finding{{
			Check:    "stale",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("media server API error: %v", err),
		}}
	}

	sectionKey := ""
	for _, dir := range sections.MediaContainer.Directory {
		switch strings.ToLower(dir.Title) {
		case "audiobooks", "audio books":
			sectionKey = dir.Key
		}
	}
	if sectionKey == "" {
		return []Finding{{
			Check:    "stale",
			Severity: SeverityInfo,
			Message:  "no audiobook library section found on media server",
		}}
	}

	var items serverItems
	if err := a.serverGet("/library/sections/"+sectionKey+"/all", &items); err != nil {
		return []Finding{{
			Check:    "stale",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("media server API error: %v", err),
		}}
	}

	var findings []Finding
	for _, item := range items.MediaContainer.Metadata {
		if item.GrandparentTitle != "" || item.ParentTitle != "" {
			continue
		}
		path := ""
		if len(item.Media) > 0 && len(item.Media[0].Part) > 0 {
			path = item.Media[0].Part[0].File
			if rel, err := filepath.Rel(a.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
				path = rel
			}
		}
		findings = append(findings, Finding{
			Check:     "stale",
			Severity:  SeverityWarning,
			Path:      path,
			Message:   fmt.Sprintf("media server shows %q with no artist, may need rescan", item.Title),
			Fixable:   path != "",
			FixAction: "touch",
		})
	}
	return findings
}

func (a *Auditor) serverGet(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, a.MediaServerURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Plex-Token", a.MediaServerToken)
	req.Header.Set("Accept", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
