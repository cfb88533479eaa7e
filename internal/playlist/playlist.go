// Package playlist parses M3U playlists into channel groups of candidate
// stream endpoints and renders the active selection back to M3U.
package playlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"streamgate/internal/logger"
)

// Entry is one candidate stream endpoint. URL is the only field the checking
// engine reads; everything else is display metadata carried through
// unmodified into the rendered output.
type Entry struct {
	Name    string            `json:"name"`
	URL     string            `json:"url"`
	TvgID   string            `json:"tvg_id,omitempty"`
	TvgName string            `json:"tvg_name,omitempty"`
	TvgLogo string            `json:"tvg_logo,omitempty"`
	Group   string            `json:"group,omitempty"`
	Attrs   map[string]string `json:"-"`
}

// CanonicalName normalizes a channel name for use as a group key:
// surrounding and internal whitespace collapsed, lowercased.
func CanonicalName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Load reads an M3U playlist from disk and groups its entries by canonical
// channel name. Entries naming the same channel become failover candidates
// for one group, in file order.
func Load(path string) (map[string][]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening playlist: %w", err)
	}
	defer f.Close()

	groups, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing playlist %s: %w", path, err)
	}
	return groups, nil
}

// Parse reads M3U content and groups entries by canonical channel name.
// Entries without a URL are skipped, as are URL lines with no preceding
// EXTINF. Other directives are ignored.
func Parse(r io.Reader) (map[string][]Entry, error) {
	groups := make(map[string][]Entry)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pending *Entry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || line == "#EXTM3U" || strings.HasPrefix(line, "#EXTM3U "):
			continue
		case strings.HasPrefix(line, "#EXTINF"):
			e := parseExtinf(line)
			pending = &e
		case strings.HasPrefix(line, "#"):
			// Other directives (#EXTGRP, #EXTVLCOPT, ...) are passed over.
			continue
		default:
			if pending == nil {
				// URL with no preceding EXTINF; there is no channel
				// name to group it under.
				logger.Debug("playlist_url_without_extinf_skipped", "url", line)
				continue
			}
			pending.URL = line
			if key := CanonicalName(pending.channelKey()); key != "" {
				groups[key] = append(groups[key], *pending)
			} else {
				logger.Debug("playlist_entry_unnamed_skipped", "url", line)
			}
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if pending != nil {
		// Trailing EXTINF with no URL line.
		logger.Debug("playlist_entry_no_url", "name", pending.Name)
	}

	return groups, nil
}

// channelKey returns the name used to group candidates of the same channel.
func (e *Entry) channelKey() string {
	if e.TvgName != "" {
		return e.TvgName
	}
	return e.Name
}

// parseExtinf extracts the attributes and display name from an EXTINF line:
//
//	#EXTINF:-1 tvg-id="x" tvg-name="Y" group-title="Z",Display Name
func parseExtinf(line string) Entry {
	e := Entry{Attrs: make(map[string]string)}

	body := strings.TrimPrefix(line, "#EXTINF:")
	// Display name is everything after the last comma outside quotes.
	if idx := lastUnquotedComma(body); idx >= 0 {
		e.Name = strings.TrimSpace(body[idx+1:])
		body = body[:idx]
	}

	for _, kv := range splitAttrs(body) {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(kv[:eq])
		val := strings.Trim(strings.TrimSpace(kv[eq+1:]), `"`)
		if key == "" {
			continue
		}
		e.Attrs[key] = val
		switch key {
		case "tvg-id":
			e.TvgID = val
		case "tvg-name":
			e.TvgName = val
		case "tvg-logo":
			e.TvgLogo = val
		case "group-title":
			e.Group = val
		}
	}

	return e
}

// lastUnquotedComma returns the index of the last comma not inside double
// quotes, or -1.
func lastUnquotedComma(s string) int {
	inQuotes := false
	last := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				last = i
			}
		}
	}
	return last
}

// splitAttrs splits the attribute portion of an EXTINF line into key=value
// tokens, respecting quoted values with embedded spaces.
func splitAttrs(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ' ' && !inQuotes:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// Render writes the active selection as an M3U playlist, one entry per
// group, ordered by group name for stable output.
func Render(selection map[string]Entry) string {
	names := make([]string, 0, len(selection))
	for name := range selection {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, name := range names {
		e := selection[name]
		b.WriteString("#EXTINF:-1")
		writeAttr(&b, "tvg-id", e.TvgID)
		writeAttr(&b, "tvg-name", e.TvgName)
		writeAttr(&b, "tvg-logo", e.TvgLogo)
		writeAttr(&b, "group-title", e.Group)
		b.WriteString(",")
		if e.Name != "" {
			b.WriteString(e.Name)
		} else {
			b.WriteString(name)
		}
		b.WriteString("\n")
		b.WriteString(e.URL)
		b.WriteString("\n")
	}
	return b.String()
}

func writeAttr(b *strings.Builder, key, val string) {
	if val == "" {
		return
	}
	fmt.Fprintf(b, " %s=%q", key, val)
}
