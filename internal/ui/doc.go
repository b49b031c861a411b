// Package ui implements an interactive terminal player using bubbletea's Elm architecture.
//
// The TUI drives one local session:
//   - a text input that takes a URL or search phrase and calls [tasks.Controller.Play]
//   - a list of the queue, refreshed on every session event
//   - key bindings for skip, pause/resume and stop
//
// The [Model] implements bubbletea's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Session events flow from a [playback.Hub] subscription, the same non-blocking channel the HTTP event stream uses.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, s, p, x, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
