package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Fingerprint hashes the ordered synchronizable fields of a record. Two
// records with equal shared fields always produce the same fingerprint,
// regardless of tag order or timestamp metadata.
func (t TaskRecord) Fingerprint() string {
	n := t.Normalize()

	var b strings.Builder
	writeField(&b, "title", n.Title)
	writeField(&b, "status", string(n.Status))
	writeField(&b, "priority", n.Priority.String())
	due := ""
	if n.Due != nil {
		due = n.Due.UTC().Format(time.RFC3339)
	}
	writeField(&b, "due", due)
	writeField(&b, "tags", strings.Join(n.Tags, ","))
	writeField(&b, "notes", n.Notes)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Field values are length-prefixed so adjacent fields can never alias
// ("ab"+"c" vs "a"+"bc").
func writeField(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "%s=%d:%s\n", name, len(value), value)
}
