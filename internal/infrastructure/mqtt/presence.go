package mqtt

import (
	"encoding/json"
	"time"
)

// Presence states and reasons published on graylogic/system/status.
const (
	presenceOnline  = "online"
	presenceOffline = "offline"

	reasonShutdown   = "graceful_shutdown"
	reasonConnection = "unexpected_disconnect"
)

// presence is the retained runtime status message. The broker sends the
// unexpected_disconnect variant on the runtime's behalf as its will.
type presence struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func presencePayload(clientID, status, reason string, at time.Time) []byte {
	//nolint:errchkjson // struct of strings always marshals
	data, _ := json.Marshal(presence{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: at.UTC().Format(time.RFC3339),
	})
	return data
}
