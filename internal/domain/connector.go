package domain

import "time"

// Supported connector types.
const (
	ConnectorGmail          = "gmail"
	ConnectorGoogleCalendar = "googlecalendar"
	ConnectorGoogleDrive    = "googledrive"
	ConnectorNotion         = "notion"
)

// ConnectorTypes lists every connector type in display order.
var ConnectorTypes = []string{ConnectorGmail, ConnectorGoogleCalendar, ConnectorGoogleDrive, ConnectorNotion}

// Connector links a user to a third-party productivity service. The OAuth
// token is stored sealed; State holds the pending authorisation nonce while
// a connect flow is in flight.
type Connector struct {
	ID           string     `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string     `json:"user_id"       gorm:"type:varchar(64);not null;uniqueIndex:ux_connector_user_type,priority:1"`
	Type         string     `json:"type"          gorm:"type:varchar(32);not null;uniqueIndex:ux_connector_user_type,priority:2"`
	ConnectionID string     `json:"connection_id,omitempty" gorm:"type:varchar(128)"`
	IsConnected  bool       `json:"is_connected"  gorm:"not null;default:false"`
	SealedToken  []byte     `json:"-"`
	State        string     `json:"-"             gorm:"type:varchar(64);index"`
	StateIssued  *time.Time `json:"-"`
	ConnectedAt  *time.Time `json:"connected_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Connector.
func (Connector) TableName() string { return "connectors" }
