// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI watches a streaming resolution run: a spinner and progress bar
// track the batch while per-track outcomes scroll in as result events
// arrive, ending with a summary once the terminal event lands.
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Resolution events flow through the resolver's event channel, pumped into
// the update loop one message at a time.
package ui
