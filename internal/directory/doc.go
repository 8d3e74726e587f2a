// Package directory keeps the in-memory list of valid delivery channels and
// mention roles shown on the web form.
//
// The list is rebuilt wholesale on every refresh and published with a single
// atomic pointer swap, so a reader sees either the old or the new snapshot,
// never a mix.
package directory
