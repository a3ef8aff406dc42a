package domain

import "time"

type DeskStatus string

const (
	DeskAvailable   DeskStatus = "available"
	DeskMaintenance DeskStatus = "maintenance"
	DeskReserved    DeskStatus = "reserved"
)

type DeskType string

const (
	DeskStandard DeskType = "standard"
	DeskStanding DeskType = "standing"
	DeskPrivate  DeskType = "private"
	DeskShared   DeskType = "shared"
)

type Desk struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	ZoneID    string     `json:"zone_id"`
	DeskType  DeskType   `json:"desk_type"`
	Status    DeskStatus `json:"status"`
	Equipment []string   `json:"equipment,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Zone struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Floor       int       `json:"floor"`
	Capacity    int       `json:"capacity"`
	Restricted  bool      `json:"restricted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
