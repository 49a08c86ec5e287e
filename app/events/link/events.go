// Package linkevents defines the topics published by the link store.
package linkevents

const AccountChangedV1 = "link.account.changed.v1"

const StreamName = "link"

// Actions carried by AccountChangedPayloadV1.
const (
	ActionLinked    = "linked"
	ActionUnlinked  = "unlinked"
	ActionVerified  = "verified"
	ActionReordered = "reordered"
)

type AccountChangedPayloadV1 struct {
	UserID string `json:"user_id"`
	Tag    string `json:"tag"`
	Action string `json:"action"`
}
