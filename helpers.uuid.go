package main

import (
	"strings"

	"github.com/gofrs/uuid"
)

var _ UIDHandler = (*IDsHandler)(nil) // ensure IDsHandler implements UIDHandler.

// UIDHandler makes prefixed uids and checks the ones received.
type UIDHandler interface {
	Generate(prefix string) string
	IsValid(id, prefix string) bool
}

// IDsHandler implements the UIDHandler interface.
type IDsHandler struct{}

// NewIDsHandler returns a ready to use IDsHandler.
func NewIDsHandler() *IDsHandler {
	return &IDsHandler{}
}

// Generate provides a random unique identifier like `r:<uuid-v4>`.
func (idh *IDsHandler) Generate(prefix string) string {
	id, err := uuid.NewV4()
	if err != nil {
		id = uuid.Must(uuid.NewV1())
	}
	return prefix + ":" + id.String()
}

// IsValid reports whether id is the given prefix followed by a uuid,
// like the ids made by Generate. Ids received from clients are checked
// with it before being reused.
func (idh *IDsHandler) IsValid(id, prefix string) bool {
	raw, ok := strings.CutPrefix(id, prefix+":")
	if !ok {
		return false
	}
	return uuid.FromStringOrNil(raw) != uuid.Nil
}
