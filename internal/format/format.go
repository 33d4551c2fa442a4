// Package format turns a completed Genie message into a Slack-native
// payload: Block Kit blocks, a plain-text fallback, and the raw SQL kept
// aside for file upload.
package format

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/mosaicworks/geniebridge/internal/genie"
)

// Answer is the rendered form of one completed exchange.
type Answer struct {
	Blocks []slack.Block
	// Text is the plain-text fallback for notifications and block-less clients.
	Text string
	// SQL is the generated query text, when the answer included one.
	SQL string
	// Table holds the fetched tabular result, when the answer included one.
	// The chart generator consumes it; the blocks already render it as a grid.
	Table *genie.QueryResult
}

// ResultFetcher fetches the tabular result behind a query attachment. It is
// the adapter's GetQueryResult partially applied to the exchange's ids.
type ResultFetcher func(ctx context.Context, attachmentID string) (*genie.QueryResult, error)

// Message renders a completed Genie message. Fetch errors propagate so the
// caller can fail the exchange instead of posting a half answer.
func Message(ctx context.Context, msg *genie.Message, fetch ResultFetcher) (Answer, error) {
	if msg == nil {
		return Answer{}, fmt.Errorf("genie message is required")
	}

	var blocks []slack.Block
	var textParts []string
	var answer Answer

	appendSection := func(text string) {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil))
	}

	for _, att := range msg.Attachments {
		if att.Text != nil {
			content := strings.TrimSpace(att.Text.Content)
			if content != "" {
				textParts = append(textParts, content)
				appendSection(content)
			}
		}
		if att.Query == nil {
			continue
		}
		if desc := strings.TrimSpace(att.Query.Description); desc != "" {
			textParts = append(textParts, desc)
			appendSection(desc)
		}
		if fetch != nil && strings.TrimSpace(att.AttachmentID) != "" {
			result, err := fetch(ctx, att.AttachmentID)
			if err != nil {
				return Answer{}, fmt.Errorf("fetch query result: %w", err)
			}
			if result != nil && len(result.Columns) > 0 {
				answer.Table = result
				appendSection("```\n" + TextGrid(result.Columns, result.Rows) + "\n```")
			}
		}
		if code := strings.TrimSpace(att.Query.Query); code != "" {
			answer.SQL = code
		}
	}

	if answer.SQL != "" {
		appendSection("```sql\n" + answer.SQL + "\n```")
	}

	answer.Blocks = blocks
	answer.Text = strings.Join(textParts, "\n")
	if answer.Text == "" {
		answer.Text = "Genie response"
	}
	return answer, nil
}

// TextGrid renders columns and rows as a monospaced table. Each column is
// padded to the width of its widest header-or-cell, columns join with " | ",
// and a dash separator row joins with "-|-".
func TextGrid(columns []string, rows [][]string) string {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	padded := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		return strings.Join(parts, " | ")
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, padded(columns))

	dashes := make([]string, len(widths))
	for i, w := range widths {
		dashes[i] = strings.Repeat("-", w)
	}
	lines = append(lines, strings.Join(dashes, "-|-"))

	for _, row := range rows {
		lines = append(lines, padded(row))
	}
	return strings.Join(lines, "\n")
}
