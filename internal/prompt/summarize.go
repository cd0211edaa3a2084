package prompt

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// BuildAttachment wraps file content the way the editor's commit prompt
// does: an <attachment> tag around a filepath comment and numbered lines,
// optionally summarized per file type to keep large files cheap.
func BuildAttachment(repoRoot, relPath, content string, summarize bool) string {
	base := filepath.Base(relPath)
	abs := filepath.Join(repoRoot, relPath)

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	total := len(lines)

	kept := map[int]string{}
	if summarize {
		kept = summarizeByType(relPath, lines)
	} else {
		for i, s := range lines {
			kept[i+1] = strings.TrimRight(s, "\r")
		}
	}

	width := len(fmt.Sprintf("%d", total))
	if width < 2 {
		width = 2
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<attachment id=%q isSummarized=\"%t\">\n", base, summarize))
	b.WriteString(filepathCommentLine(relPath, abs))

	keys := make([]int, 0, len(kept))
	for k := range kept {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, ln := range keys {
		b.WriteString(fmt.Sprintf("%*d: %s\n", width, ln, kept[ln]))
	}
	b.WriteString("</attachment>\n")
	return b.String()
}

func summarizeByType(relPath string, lines []string) map[int]string {
	ext := strings.ToLower(filepath.Ext(relPath))
	switch ext {
	case ".md", ".txt", ".json", ".yml", ".yaml":
		return summarizeHead(lines, 25)

	case ".go":
		return summarizeGo(lines)

	default:
		return summarizeHeadTail(lines, 80, 5)
	}
}

// Keep the head plus the final line as an end marker.
func summarizeHead(lines []string, headN int) map[int]string {
	kept := map[int]string{}
	n := len(lines)

	for i := 1; i <= min(headN, n); i++ {
		kept[i] = strings.TrimRight(lines[i-1], "\r")
	}
	if n >= 1 {
		kept[n] = strings.TrimRight(lines[n-1], "\r")
	}
	return kept
}

func summarizeHeadTail(lines []string, headN, tailN int) map[int]string {
	kept := map[int]string{}
	n := len(lines)

	for i := 1; i <= min(headN, n); i++ {
		kept[i] = strings.TrimRight(lines[i-1], "\r")
	}
	for i := max(1, n-tailN+1); i <= n; i++ {
		kept[i] = strings.TrimRight(lines[i-1], "\r")
	}
	return kept
}

// summarizeGo keeps package/import/type/const/var blocks and comments, and
// collapses every func body to its signature plus "{…}", matching the shape
// of the editor's own summarized attachments for Go files.
func summarizeGo(lines []string) map[int]string {
	kept := map[int]string{}
	n := len(lines)

	inImportBlock := false
	inDeclBlock := false
	declDepth := 0

	inFunc := false
	funcStartLine := 0

	for i := 0; i < n; i++ {
		ln := i + 1
		line := strings.TrimRight(lines[i], "\r")
		trim := strings.TrimSpace(line)

		if strings.HasPrefix(trim, "import (") && !inFunc {
			inImportBlock = true
			kept[ln] = line
			continue
		}
		if inImportBlock && !inFunc {
			kept[ln] = line
			if trim == ")" {
				inImportBlock = false
			}
			continue
		}

		// Parenthesized type/const/var blocks are kept whole.
		if !inFunc && (strings.HasPrefix(trim, "type (") || strings.HasPrefix(trim, "const (") || strings.HasPrefix(trim, "var (")) {
			inDeclBlock = true
			declDepth = 1
			kept[ln] = line
			continue
		}
		if inDeclBlock && !inFunc {
			kept[ln] = line
			declDepth += strings.Count(line, "(") - strings.Count(line, ")")
			if declDepth <= 0 {
				inDeclBlock = false
			}
			continue
		}

		if !inFunc && strings.HasPrefix(trim, "func ") {
			if idx := strings.Index(line, "{"); idx >= 0 {
				kept[ln] = strings.TrimRight(line[:idx], " \t") + " {…}"
				// A body opened and closed on one line is already over.
				if strings.Count(line, "{") > strings.Count(line, "}") {
					inFunc = true
					funcStartLine = ln
				}
			} else {
				// Multiline signature; collapsed once the brace shows up.
				inFunc = true
				funcStartLine = ln
				kept[ln] = line
			}
			continue
		}

		if inFunc {
			if strings.Contains(line, "{") && !strings.HasSuffix(kept[funcStartLine], "{…}") {
				kept[funcStartLine] = strings.TrimRight(kept[funcStartLine], " \t") + " {…}"
			}
			// Close on a lone "}". Shallow, but matches the summarized
			// dumps this mirrors.
			if trim == "}" {
				inFunc = false
				funcStartLine = 0
			}
			continue
		}

		if trim == "" ||
			strings.HasPrefix(trim, "package ") ||
			strings.HasPrefix(trim, "type ") ||
			strings.HasPrefix(trim, "const ") ||
			strings.HasPrefix(trim, "var ") ||
			strings.HasPrefix(trim, "//") {
			kept[ln] = line
		}
	}

	if n >= 1 {
		kept[n] = strings.TrimRight(lines[n-1], "\r")
	}

	return kept
}

func filepathCommentLine(rel, abs string) string {
	ext := strings.ToLower(filepath.Ext(rel))
	switch ext {
	case ".md", ".html", ".xml", ".yaml", ".yml", ".json":
		return fmt.Sprintf("<!-- filepath: %s -->\n", abs)
	case ".py", ".sh":
		return fmt.Sprintf("# filepath: %s\n", abs)
	default:
		return fmt.Sprintf("// filepath: %s\n", abs)
	}
}
