package format

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/mosaicworks/geniebridge/internal/genie"
)

func TestTextGridWidths(t *testing.T) {
	t.Parallel()

	got := TextGrid([]string{"a", "bb"}, [][]string{{"1", "x"}, {"22", "y"}})
	want := strings.Join([]string{
		"a  | bb",
		"---|---",
		"1  | x ",
		"22 | y ",
	}, "\n")
	if got != want {
		t.Fatalf("grid mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestTextGridHeaderWiderThanCells(t *testing.T) {
	t.Parallel()

	got := TextGrid([]string{"region", "n"}, [][]string{{"eu", "4"}})
	want := strings.Join([]string{
		"region | n",
		"-------|--",
		"eu     | 4",
	}, "\n")
	if got != want {
		t.Fatalf("grid mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestTextGridShortRow(t *testing.T) {
	t.Parallel()

	got := TextGrid([]string{"a", "b"}, [][]string{{"1"}})
	want := strings.Join([]string{
		"a | b",
		"--|--",
		"1 |  ",
	}, "\n")
	if got != want {
		t.Fatalf("grid mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestMessageRendersAllSegments(t *testing.T) {
	t.Parallel()

	msg := &genie.Message{
		Attachments: []genie.Attachment{
			{
				AttachmentID: "att-1",
				Text:         &genie.TextAttachment{Content: "Revenue grew 4% in Q2."},
			},
			{
				AttachmentID: "att-2",
				Query: &genie.QueryAttachment{
					Description: "Quarterly revenue by region",
					Query:       "SELECT region, sum(rev) FROM sales GROUP BY region",
				},
			},
		},
	}
	fetch := func(_ context.Context, attachmentID string) (*genie.QueryResult, error) {
		if attachmentID != "att-2" {
			t.Fatalf("attachment mismatch: got %q want %q", attachmentID, "att-2")
		}
		return &genie.QueryResult{
			Columns: []string{"region", "rev"},
			Rows:    [][]string{{"eu", "10"}, {"us", "20"}},
		}, nil
	}

	ans, err := Message(context.Background(), msg, fetch)
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}
	if len(ans.Blocks) != 4 {
		t.Fatalf("block count mismatch: got %d want 4", len(ans.Blocks))
	}
	texts := make([]string, 0, len(ans.Blocks))
	for _, b := range ans.Blocks {
		sec, ok := b.(*slack.SectionBlock)
		if !ok {
			t.Fatalf("block type mismatch: got %T want *slack.SectionBlock", b)
		}
		texts = append(texts, sec.Text.Text)
	}
	if texts[0] != "Revenue grew 4% in Q2." {
		t.Fatalf("narrative mismatch: got %q", texts[0])
	}
	if texts[1] != "Quarterly revenue by region" {
		t.Fatalf("description mismatch: got %q", texts[1])
	}
	if !strings.HasPrefix(texts[2], "```\nregion | rev") {
		t.Fatalf("table block mismatch: got %q", texts[2])
	}
	if !strings.HasPrefix(texts[3], "```sql\nSELECT region") {
		t.Fatalf("sql block mismatch: got %q", texts[3])
	}
	if ans.SQL == "" || ans.Table == nil {
		t.Fatalf("answer extras missing: sql=%q table=%v", ans.SQL, ans.Table)
	}
	if ans.Text != "Revenue grew 4% in Q2.\nQuarterly revenue by region" {
		t.Fatalf("fallback mismatch: got %q", ans.Text)
	}
}

func TestMessageFallbackWhenEmpty(t *testing.T) {
	t.Parallel()

	ans, err := Message(context.Background(), &genie.Message{}, nil)
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}
	if ans.Text != "Genie response" {
		t.Fatalf("fallback mismatch: got %q want %q", ans.Text, "Genie response")
	}
	if len(ans.Blocks) != 0 {
		t.Fatalf("block count mismatch: got %d want 0", len(ans.Blocks))
	}
}

func TestMessageFetchErrorPropagates(t *testing.T) {
	t.Parallel()

	msg := &genie.Message{
		Attachments: []genie.Attachment{
			{AttachmentID: "att-1", Query: &genie.QueryAttachment{Query: "SELECT 1"}},
		},
	}
	fetch := func(context.Context, string) (*genie.QueryResult, error) {
		return nil, fmt.Errorf("boom")
	}
	if _, err := Message(context.Background(), msg, fetch); err == nil {
		t.Fatalf("Message() expected fetch error")
	}
}
