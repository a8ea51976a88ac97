package model

import "time"

// Visit is a visitor-registration record created at the front desk.
type Visit struct {
	ID           string     `json:"id"`
	VisitorName  string     `json:"visitorName"`
	Company      *string    `json:"company,omitempty"`
	HostName     string     `json:"hostName"`
	Purpose      *string    `json:"purpose,omitempty"`
	BadgeNumber  *string    `json:"badgeNumber,omitempty"`
	DeviceID     *string    `json:"deviceId,omitempty"` // kiosk that registered the visit
	CheckedInAt  time.Time  `json:"checkedInAt"`
	CheckedOutAt *time.Time `json:"checkedOutAt,omitempty"`
}

// IsOpen reports whether the visitor is still on site
func (v *Visit) IsOpen() bool {
	return v.CheckedOutAt == nil
}
