package mqtt

import (
	"encoding/json"
	"time"
)

// TopicFirmwareUpdate is the fixed topic for build-completion events.
const TopicFirmwareUpdate = "sector/firmware/updates"

// FirmwareEvent is the payload published when a build is created or
// transitions to SUCCESS.
type FirmwareEvent struct {
	ID           string    `json:"id"`
	Version      string    `json:"version"`
	URL          *string   `json:"url,omitempty"`
	RepositoryID string    `json:"repositoryId"`
	GroupID      *string   `json:"groupId,omitempty"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// PublishFirmwareUpdate publishes a firmware event to the update topic.
func (c *Client) PublishFirmwareUpdate(event FirmwareEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.Publish(TopicFirmwareUpdate, payload)
}
