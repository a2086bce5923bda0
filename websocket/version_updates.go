package websocket

import (
	"time"

	"dam/models"
)

// VersionUpdate is a real-time ledger event for the review queue
type VersionUpdate struct {
	Type      string      `json:"type"` // VERSION_CREATED, VERSION_RESOLVED
	VersionID string      `json:"versionId"`
	AssetID   string      `json:"assetId"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	UserID    string      `json:"userId,omitempty"`
	UserName  string      `json:"userName,omitempty"`
}

// SendVersionCreated tells admin clients a new proposal entered the queue.
func SendVersionCreated(v *models.Version, userID, userName string) {
	send(true, VersionUpdate{
		Type:      "VERSION_CREATED",
		VersionID: v.ID.Hex(),
		AssetID:   v.AssetID.Hex(),
		Data:      v,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		UserName:  userName,
	})
}

// SendVersionResolved tells admin clients a proposal left the queue.
func SendVersionResolved(v *models.Version, userID, userName string) {
	send(true, VersionUpdate{
		Type:      "VERSION_RESOLVED",
		VersionID: v.ID.Hex(),
		AssetID:   v.AssetID.Hex(),
		Data: map[string]interface{}{
			"status": v.Status,
			"seq":    v.Seq,
		},
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		UserName:  userName,
	})
}

// BroadcastAudit streams a new audit entry to admin clients.
func BroadcastAudit(audit *models.AuditLog) {
	send(true, map[string]interface{}{
		"type":      "AUDIT_CREATED",
		"audit":     audit,
		"timestamp": time.Now().UTC(),
	})
}
