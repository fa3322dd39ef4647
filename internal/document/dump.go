package document

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// DatabaseName is the name announced in every dump envelope.
const DatabaseName = "RNAcentral"

// WriteDump wraps formatted entries into one dump document.
func WriteDump(w io.Writer, release string, entries [][]byte) error {
	bw := bufio.NewWriter(w)
	lines := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		"<database>",
		"<name>" + DatabaseName + "</name>",
		"<release>" + attrEscaper.Replace(release) + "</release>",
		"<entry_count>" + strconv.Itoa(len(entries)) + "</entry_count>",
		"<entries>",
	}
	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			return fmt.Errorf("write dump header: %w", err)
		}
	}
	for _, e := range entries {
		if _, err := bw.Write(e); err != nil {
			return fmt.Errorf("write dump entry: %w", err)
		}
	}
	if _, err := bw.WriteString("</entries>\n</database>\n"); err != nil {
		return fmt.Errorf("write dump footer: %w", err)
	}
	return bw.Flush()
}
