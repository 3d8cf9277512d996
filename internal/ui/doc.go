// Package ui holds the console surface of the CLI: colored progress and error
// lines, the yes/no prompter, and terminal detection.
package ui
