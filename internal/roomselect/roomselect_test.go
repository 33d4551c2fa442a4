package roomselect

import (
	"testing"

	"github.com/slack-go/slack"

	"github.com/mosaicworks/geniebridge/internal/genie"
)

func TestBlocksRendersOptionsAndConfirm(t *testing.T) {
	t.Parallel()

	rooms := []genie.Room{
		{ID: "room-1", Name: "Sales"},
		{ID: "room-2", Name: ""},
	}
	blocks := Blocks(rooms)
	if len(blocks) != 2 {
		t.Fatalf("block count mismatch: got %d want 2", len(blocks))
	}

	section, ok := blocks[0].(*slack.SectionBlock)
	if !ok {
		t.Fatalf("block type mismatch: got %T want *slack.SectionBlock", blocks[0])
	}
	if section.Accessory == nil || section.Accessory.SelectElement == nil {
		t.Fatalf("select accessory missing")
	}
	sel := section.Accessory.SelectElement
	if sel.ActionID != SelectActionID {
		t.Fatalf("action id mismatch: got %q want %q", sel.ActionID, SelectActionID)
	}
	if len(sel.Options) != 2 {
		t.Fatalf("option count mismatch: got %d want 2", len(sel.Options))
	}
	if sel.Options[0].Value != "room-1" || sel.Options[0].Text.Text != "Sales" {
		t.Fatalf("option mismatch: got %q/%q", sel.Options[0].Value, sel.Options[0].Text.Text)
	}
	// A nameless room falls back to its id as the label.
	if sel.Options[1].Text.Text != "room-2" {
		t.Fatalf("label fallback mismatch: got %q want %q", sel.Options[1].Text.Text, "room-2")
	}

	actions, ok := blocks[1].(*slack.ActionBlock)
	if !ok {
		t.Fatalf("block type mismatch: got %T want *slack.ActionBlock", blocks[1])
	}
	if len(actions.Elements.ElementSet) != 1 {
		t.Fatalf("element count mismatch: got %d want 1", len(actions.Elements.ElementSet))
	}
	button, ok := actions.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	if !ok {
		t.Fatalf("element type mismatch: got %T want *slack.ButtonBlockElement", actions.Elements.ElementSet[0])
	}
	if button.ActionID != ConfirmActionID {
		t.Fatalf("action id mismatch: got %q want %q", button.ActionID, ConfirmActionID)
	}
}

func TestBlocksEmptyRoomList(t *testing.T) {
	t.Parallel()

	blocks := Blocks(nil)
	if len(blocks) != 2 {
		t.Fatalf("block count mismatch: got %d want 2", len(blocks))
	}
	section := blocks[0].(*slack.SectionBlock)
	if n := len(section.Accessory.SelectElement.Options); n != 0 {
		t.Fatalf("option count mismatch: got %d want 0", n)
	}
}
