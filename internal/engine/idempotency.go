package engine

import (
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/blake2b"
)

const maxReadableEntityID = 128

var readableEntityID = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// WorkflowID derives the idempotency key for (workflowType, entityID). The
// readable form "type-entityID" is used whenever the entity id is short and
// made of safe characters; otherwise the id is replaced by its blake2b-256
// digest so the key stays deterministic and bounded.
func WorkflowID(workflowType, entityID string) string {
	return workflowType + "-" + entityKey(entityID)
}

// childSeparator never occurs in a readable entity id or a digest, so child
// keys cannot collide with each other or with top-level keys.
const childSeparator = "/"

// ChildWorkflowID derives the key of a fan-out child: one per recipient of a
// given parent entity, as "type/parent/recipient".
func ChildWorkflowID(workflowType, parentEntityID, recipientID string) string {
	return workflowType + childSeparator + entityKey(parentEntityID) + childSeparator + entityKey(recipientID)
}

func entityKey(id string) string {
	if len(id) <= maxReadableEntityID && readableEntityID.MatchString(id) {
		return id
	}
	sum := blake2b.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
