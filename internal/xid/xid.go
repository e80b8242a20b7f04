package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a prefixed, time-ordered identifier such as
// "ord-0192d3c4-...". Time ordering keeps ids roughly sortable by creation.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "-" + id.String()
}

// Reference returns a short upper-case code for humans to read out, e.g. a
// payment reference "PAY-3F9A1C7B2D".
func Reference(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(raw[:10])
}
