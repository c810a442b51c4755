// ABOUTME: User-facing notification surface for sync failures
// ABOUTME: Defines the Notifier interface and a log-backed default
package notify

import "log"

// Notifier reports a permanent sync failure to the user. The host app
// supplies its own implementation (toast, alert); rendering is out of scope
// here.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier writes notifications to the process log. Used by the CLI and
// as the default when no richer surface is wired.
type LogNotifier struct{}

func (LogNotifier) Notify(title, message string) {
	log.Printf("%s: %s", title, message)
}

// Func adapts a function to the Notifier interface.
type Func func(title, message string)

func (f Func) Notify(title, message string) { f(title, message) }
