// Package ui implements the terminal gallery using bubbletea's Elm architecture.
//
// Each playlist in the source list gets a card that starts as a spinner and is replaced
// by its artwork details or an error placeholder as the loader reports outcomes. A banner
// appears once every card has settled.
//
// The loader talks to the view through a [Bridge], which implements tasks.Renderer by
// forwarding outcomes into the running program. Quitting closes the bridge, so results
// arriving afterwards are dropped rather than delivered to a program that is gone.
//
// Keyboard navigation uses vim-style bindings (h/j/k/l, enter, r, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
