// Package watcher adapts fsnotify into a recursive, single-root watcher.
//
// fsnotify watches one directory level at a time; Watcher keeps a watch on
// every directory below the root, adds watches for directories created later
// and drops them when directories go away. Notifications are delivered to one
// callback on a single goroutine in the order the backend reported them.
package watcher
