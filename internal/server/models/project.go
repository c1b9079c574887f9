package models

import (
	"encoding/json"
	"time"
)

// Project is a takeoff project owned by a single user. Data is the opaque
// structured payload maintained by the client (symbols, disciplines, areas,
// measurements, measurement groups, DALI networks/devices/templates); the
// server stores and returns it without interpreting it.
type Project struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	// Pdfs is always non-nil in API responses, empty when none exist.
	Pdfs []*Pdf `json:"pdfs"`
}

// DefaultProjectData returns the well-formed empty payload used when a
// create request omits data. The stock disciplines match what the client
// seeds for a fresh project.
func DefaultProjectData() json.RawMessage {
	return json.RawMessage(`{
		"symbols": [],
		"disciplines": [
			{"id": "disc_1", "name": "Electrical", "parentId": null},
			{"id": "disc_2", "name": "Plumbing", "parentId": null},
			{"id": "disc_3", "name": "HVAC", "parentId": null}
		],
		"areas": [],
		"measurements": [],
		"measurementGroups": [],
		"daliNetworks": [],
		"daliDevices": [],
		"ecdTypes": [],
		"daliNetworkTemplates": []
	}`)
}
