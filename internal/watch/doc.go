// Package watch reports changes to tree source files.
//
// Watcher wraps fsnotify. It watches the directories holding the
// configured paths, so editors that replace a file by renaming over it
// are still seen, and coalesces bursts of events per file within the
// debounce window.
package watch
