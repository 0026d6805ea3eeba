// Package ui renders terminal output for the mist CLI.
//
// Tables are built on the Bubbles table component and styled with
// Lip Gloss. They are rendered once as plain strings; nothing here runs
// an interactive program.
//
// # Color Scheme
//
//	ColorSuccess   (green)  - Running machines, passed checks
//	ColorError     (red)    - Failures, terminated machines
//	ColorWarning   (yellow) - Pending or rebooting machines, warnings
//	ColorMuted     (gray)   - Secondary text, unavailable actions
//
// # Symbols
//
//	SymbolSuccess  (checkmark) - Operation succeeded
//	SymbolFail     (X)         - Operation failed
//	SymbolSkipped  (slashed)   - Not supported by the provider
package ui
