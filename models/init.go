package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Company{},
		&CustomRole{},
		&Membership{},
		&Permission{},
		&RolePermission{},
		&Meeting{},
		&MeetingAttendee{},
		&AgendaItem{},
		&Decision{},
		&Vote{},
		&ActionItem{},
		&MeetingNote{},
		&MeetingSummary{},
	}
}
