// Package binding holds the request binding converters: uploaded files to
// embeddable images and empty form strings to null.
package binding
