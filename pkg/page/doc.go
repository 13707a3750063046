// Package page is the page controller for the school site: it polls the weather proxy, maps
// conditions to icons and copy, rotates the reminder banner and tracks the open/closed state of
// the page widgets. Views subscribe to a Store and never mutate state themselves.
package page
