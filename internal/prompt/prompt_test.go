package prompt

import (
	"strings"
	"testing"
)

func TestExtractOneTextCodeBlock(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOk bool
	}{
		{
			name:   "text block",
			input:  "```text\ncommit message\n```",
			want:   "commit message",
			wantOk: true,
		},
		{
			name:   "markdown block",
			input:  "```markdown\ncommit message\n```",
			want:   "commit message",
			wantOk: true,
		},
		{
			name:   "no lang block",
			input:  "```\ncommit message\n```",
			want:   "commit message",
			wantOk: true,
		},
		{
			name:   "surrounding whitespace",
			input:  "  ```\ncommit message\n```  ",
			want:   "commit message",
			wantOk: true,
		},
		{
			name:   "multiline message",
			input:  "```\nfeat: add something\n\nBody line.\n```",
			want:   "feat: add something\n\nBody line.",
			wantOk: true,
		},
		{
			name:   "prose only",
			input:  "Just some text",
			want:   "Just some text",
			wantOk: false,
		},
		{
			name:   "prose with code",
			input:  "Here is the code:\n```\nfeat: x\n```",
			want:   "feat: x",
			wantOk: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractOneTextCodeBlock(tt.input)
			if ok != tt.wantOk {
				t.Errorf("ExtractOneTextCodeBlock() ok = %v, want %v", ok, tt.wantOk)
			}
			if got != tt.want {
				t.Errorf("ExtractOneTextCodeBlock() got = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildMessagesRolesAndTemplate(t *testing.T) {
	d := Data{
		RepositoryName: "demo",
		BranchName:     "main",
		Changes:        []Change{{Path: "a.go", Status: "modified", Diff: "+x"}},
	}

	msgs := BuildMessages(d)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleSystem || msgs[1].Role != RoleUser {
		t.Errorf("roles = %q,%q; want system,user", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[0].Content, "git commit message") {
		t.Error("built-in system text missing")
	}

	d.SystemTemplate = "You write commit messages for pirates. Arr."
	msgs = BuildMessages(d)
	if msgs[0].Content != d.SystemTemplate {
		t.Errorf("system template not applied: %q", msgs[0].Content)
	}
}

func TestBuildUserTextSections(t *testing.T) {
	d := Data{
		RepositoryName:    "demo",
		BranchName:        "feature/x",
		RecentUserCommits: []string{"fix: earlier"},
		RecentRepoCommits: []string{"feat: other"},
		Changes: []Change{
			{Path: "a.go", Status: "modified", Diff: "+added line", OriginalCode: "<attachment id=\"a.go\" isSummarized=\"false\">\n</attachment>\n"},
			{Path: "new.go", OldPath: "old.go", Status: "renamed", Diff: "rename"},
			{Path: "gone.go", Status: "deleted", Diff: "-removed"},
		},
		CustomInstructions: "Always mention the ticket prefix.",
	}

	text := buildUserText(d)

	for _, want := range []string{
		"Repository name: demo",
		"Branch name: feature/x",
		"# RECENT USER COMMITS",
		"- fix: earlier",
		"# RECENT REPOSITORY COMMITS",
		"# CODE CHANGES (modified: a.go):",
		"# CODE CHANGES (renamed: old.go -> new.go):",
		"# CODE CHANGES (deleted: gone.go):",
		"```diff\n+added line\n```",
		"<custom-instructions>\nAlways mention the ticket prefix.",
		"<attachment id=\"a.go\"",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("user text missing %q", want)
		}
	}

	// Commit sections disappear when there is nothing to show.
	d.RecentUserCommits = nil
	d.RecentRepoCommits = nil
	text = buildUserText(d)
	if strings.Contains(text, "<user-commits>") || strings.Contains(text, "<recent-commits>") {
		t.Error("empty commit sections were rendered")
	}
}

func TestTotalChars(t *testing.T) {
	msgs := []Message{
		{Role: RoleSystem, Content: "abc"},
		{Role: RoleUser, Content: "déf"},
	}
	if got := TotalChars(msgs); got != 6 {
		t.Errorf("TotalChars = %d, want 6", got)
	}
	if got := TotalChars(nil); got != 0 {
		t.Errorf("TotalChars(nil) = %d, want 0", got)
	}
}

func TestBuildAttachmentNumbersLines(t *testing.T) {
	got := BuildAttachment("/repo", "x.go", "a\nb\nc", false)

	for _, want := range []string{
		"<attachment id=\"x.go\" isSummarized=\"false\">",
		"// filepath: /repo/x.go",
		" 1: a",
		" 2: b",
		" 3: c",
		"</attachment>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("attachment missing %q in:\n%s", want, got)
		}
	}
}

func TestBuildAttachmentCommentStyleByExt(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"doc.md", "<!-- filepath: /repo/doc.md -->"},
		{"script.py", "# filepath: /repo/script.py"},
		{"main.go", "// filepath: /repo/main.go"},
	}
	for _, tt := range tests {
		got := BuildAttachment("/repo", tt.rel, "x", false)
		if !strings.Contains(got, tt.want) {
			t.Errorf("attachment for %s missing %q", tt.rel, tt.want)
		}
	}
}

func TestSummarizeGoCollapsesFuncBodies(t *testing.T) {
	src := strings.Join([]string{
		"package demo",
		"",
		"// Add adds.",
		"func Add(a, b int) int {",
		"\treturn a + b",
		"}",
		"",
		"type T struct{}",
	}, "\n")

	kept := summarizeGo(strings.Split(src, "\n"))

	if kept[1] != "package demo" {
		t.Errorf("package line not kept: %q", kept[1])
	}
	if kept[4] != "func Add(a, b int) int {…}" {
		t.Errorf("func signature not collapsed: %q", kept[4])
	}
	if _, ok := kept[5]; ok {
		t.Error("func body line leaked into summary")
	}
	if kept[8] != "type T struct{}" {
		t.Errorf("type line not kept: %q", kept[8])
	}
}
