// Package roomselect builds the Block Kit picker a new assistant thread
// opens with: a static select of Genie rooms plus a confirm button.
package roomselect

import (
	"github.com/slack-go/slack"

	"github.com/mosaicworks/geniebridge/internal/genie"
)

// Action ids the orchestrator routes interaction payloads by.
const (
	SelectActionID  = "genie_room_select"
	ConfirmActionID = "genie_room_confirm"
)

const promptText = "Which Genie room should answer this thread?"

// Blocks renders the picker. An empty room list still renders; the select
// simply has no options, which Slack displays as an empty menu.
func Blocks(rooms []genie.Room) []slack.Block {
	options := make([]*slack.OptionBlockObject, 0, len(rooms))
	for _, room := range rooms {
		label := room.Name
		if label == "" {
			label = room.ID
		}
		options = append(options, slack.NewOptionBlockObject(
			room.ID,
			slack.NewTextBlockObject(slack.PlainTextType, label, false, false),
			nil,
		))
	}

	selectEl := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic,
		slack.NewTextBlockObject(slack.PlainTextType, "Select a room", false, false),
		SelectActionID,
		options...,
	)
	confirm := slack.NewButtonBlockElement(
		ConfirmActionID,
		"confirm",
		slack.NewTextBlockObject(slack.PlainTextType, "Confirm", false, false),
	)
	confirm.Style = slack.StylePrimary

	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, promptText, false, false),
			nil,
			slack.NewAccessory(selectEl),
		),
		slack.NewActionBlock("genie_room_actions", confirm),
	}
}
