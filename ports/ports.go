// Package ports enumerates candidate serial devices on the host.
package ports

import (
	"path"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"go.bug.st/serial/enumerator"
)

// Lister returns the currently visible device names. Every call enumerates
// afresh; an empty result is not an error.
type Lister interface {
	List() []string
}

// Static is a fixed device list.
type Static []string

func (s Static) List() []string {
	return append([]string(nil), s...)
}

var getDetailedPortsList = enumerator.GetDetailedPortsList

// Enumerator lists host serial ports through the OS enumerator.
type Enumerator struct {
	// Patterns are path.Match globs checked against the full name and its
	// base name. No patterns accepts every port.
	Patterns []string
	USBOnly  bool
	Log      zerolog.Logger
}

func (e Enumerator) List() []string {
	details, err := getDetailedPortsList()
	if err != nil {
		e.Log.Warn().Err(err).Msg("enumerating serial ports")
		return nil
	}
	var names []string
	for _, d := range details {
		if e.USBOnly && !d.IsUSB {
			continue
		}
		if !Match(e.Patterns, d.Name) {
			continue
		}
		names = append(names, d.Name)
	}
	sort.Strings(names)
	e.Log.Debug().Strs("ports", names).Msg("enumerated serial ports")
	return names
}

// Match reports whether name matches any of patterns.
func Match(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	base := filepath.Base(name)
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}
