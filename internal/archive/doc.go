// Package archive fetches versioned template archives over HTTP and unpacks
// them into the working directory.
package archive
