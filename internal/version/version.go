// Package version holds the build version, overridable with -ldflags "-X".
package version

// Version is the release version of source-weaver
var Version = "0.1.0"
