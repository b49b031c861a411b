package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

var _ list.Item = queueItem{}

// queueItem wraps [models.PlaylistItem] to implement [list.Item].
type queueItem struct {
	item     models.PlaylistItem
	position int
}

func (i queueItem) FilterValue() string { return i.item.Title() }
func (i queueItem) Title() string       { return fmt.Sprintf("%d. %s", i.position, i.item.Title()) }
func (i queueItem) Description() string {
	desc := shared.FormatDuration(i.item.Duration())
	if q := i.item.OriginalQuery(); q != "" && q != i.item.Title() {
		desc = fmt.Sprintf("%s • %s", desc, q)
	}
	return desc
}

func queueItems(items []models.PlaylistItem) []list.Item {
	out := make([]list.Item, len(items))
	for i, item := range items {
		out[i] = queueItem{item: item, position: i + 1}
	}
	return out
}
