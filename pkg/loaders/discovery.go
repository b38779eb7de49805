package loaders

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// SVGInfo describes an SVG file found on disk
type SVGInfo struct {
	Name        string `json:"name"`        // File stem
	DisplayName string `json:"displayName"` // Document <title>, or the title-cased stem
	FilePath    string `json:"filePath"`
}

// DiscoverSVG lists the .svg files of a directory (any case), sorted by file name
func DiscoverSVG(dir string) ([]SVGInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}

	var files []SVGInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".svg") {
			continue
		}
		files = append(files, ParseSVGMetadata(filepath.Join(dir, entry.Name())))
	}

	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i].FilePath) < filepath.Base(files[j].FilePath)
	})
	return files, nil
}

// ParseSVGMetadata reads the document title of an SVG file. Unreadable files
// keep the fallback values derived from the file name.
func ParseSVGMetadata(filePath string) SVGInfo {
	filename := filepath.Base(filePath)
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	info := SVGInfo{
		Name:        stem,
		DisplayName: titleCase(stem),
		FilePath:    filePath,
	}

	file, err := os.Open(filePath)
	if err != nil {
		return info
	}
	defer file.Close()

	if title := readTitle(file); title != "" {
		info.DisplayName = title
	}
	return info
}

// readTitle returns the text of the first <title> element
func readTitle(r io.Reader) string {
	l := xml.NewLexer(parse.NewInput(r))
	inTitle := false
	var title strings.Builder
	for {
		tt, data := l.Next()
		switch tt {
		case xml.ErrorToken:
			return strings.TrimSpace(title.String())
		case xml.StartTagToken:
			inTitle = localName(l.Text()) == "title"
		case xml.TextToken, xml.CDATAToken:
			if inTitle {
				title.Write(data)
			}
		case xml.EndTagToken:
			if inTitle {
				return strings.Join(strings.Fields(entities.Replace(title.String())), " ")
			}
		}
	}
}

// titleCase converts a filename-style string to title case
// e.g., "company-logo" -> "Company Logo"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
