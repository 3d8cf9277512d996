// Package platform hides the permission differences between Unix and
// Windows from the bootstrap pipeline.
package platform
