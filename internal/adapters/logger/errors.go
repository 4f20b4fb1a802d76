package logger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// messager matches zerr errors, which can report their own message without the chain.
type messager interface {
	Message() string
}

type metadataer interface {
	Metadata() map[string]any
}

// ErrorEntry is one level of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries flattens an error chain, outermost first.
// zerr levels with an empty message only carry metadata, which is merged into the next level.
// Joined errors contribute one entry per member.
func collectErrorEntries(err error) []ErrorEntry {
	var (
		entries []ErrorEntry
		pending map[string]any
	)

	var walk func(error)
	walk = func(err error) {
		for err != nil {
			m, ok := err.(messager)
			if !ok {
				if joined, ok := err.(interface{ Unwrap() []error }); ok {
					for _, member := range joined.Unwrap() {
						walk(member)
					}
					return
				}
				entries = append(entries, ErrorEntry{Message: err.Error(), Metadata: pending})
				pending = nil
				return
			}

			var meta map[string]any
			if md, ok := err.(metadataer); ok {
				meta = md.Metadata()
			}
			if m.Message() == "" {
				if len(meta) > 0 {
					if pending == nil {
						pending = make(map[string]any, len(meta))
					}
					maps.Copy(pending, meta)
				}
				err = errors.Unwrap(err)
				continue
			}

			if meta == nil {
				meta = make(map[string]any)
			}
			maps.Copy(meta, pending)
			pending = nil
			entries = append(entries, ErrorEntry{Message: m.Message(), Metadata: meta})
			err = errors.Unwrap(err)
		}
	}
	walk(err)
	return entries
}

// formatErrorEntries renders entries as a headline followed by an indented cause list.
// Metadata keys are sorted.
func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string
	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")

		lead, indent := "Error: ", "       "
		if i > 0 {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			lead, indent = "    → ", "      "
		}

		lines = append(lines, lead+msgLines[0])
		for _, line := range msgLines[1:] {
			lines = append(lines, indent+line)
		}
		for _, k := range slices.Sorted(maps.Keys(entry.Metadata)) {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, k, entry.Metadata[k]))
		}
	}
	return strings.Join(lines, "\n")
}
