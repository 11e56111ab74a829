// Package tui is the terminal console: API, ENG and NAV status badges, the
// activity-log window as "HH:MM:SS | text" lines (errors highlighted) and
// one pane per prediction form driven by its presets.
//
// The console is another bus subscriber. A Feed turns bus entries and poller
// changes into refresh signals; on each signal the model re-reads the log
// panel window or the poller status.
package tui
