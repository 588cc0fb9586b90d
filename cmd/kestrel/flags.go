package main

// HomeFlag selects the root directory every file the node reads or writes
// is resolved against. Empty means the standard XDG layout.
type HomeFlag struct {
	KestrelHome string `long:"home" description:"Path to an alternative home for the node to use"`
}
