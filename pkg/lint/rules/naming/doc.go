// Package naming provides the file-naming rule family.
//
// Every variant checks the file name (without extension) against one casing
// convention and fixes violations by renaming the file.
package naming
