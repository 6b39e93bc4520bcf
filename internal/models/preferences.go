package models

type Preferences struct {
	DefaultView          string `json:"defaultView"`
	SortOrder            string `json:"sortOrder"`
	Theme                string `json:"theme"`
	ShowCompletedTasks   bool   `json:"showCompletedTasks"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	// ReminderOffset is in minutes before the due date.
	ReminderOffset int `json:"reminderOffset"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		DefaultView:          "dashboard",
		SortOrder:            "dueDate",
		Theme:                "light",
		ShowCompletedTasks:   false,
		NotificationsEnabled: true,
		ReminderOffset:       60,
	}
}

type PreferencesPatch struct {
	DefaultView          *string `json:"defaultView"`
	SortOrder            *string `json:"sortOrder"`
	Theme                *string `json:"theme"`
	ShowCompletedTasks   *bool   `json:"showCompletedTasks"`
	NotificationsEnabled *bool   `json:"notificationsEnabled"`
	ReminderOffset       *int    `json:"reminderOffset"`
}

func (p PreferencesPatch) Apply(prefs *Preferences) {
	if p.DefaultView != nil {
		prefs.DefaultView = *p.DefaultView
	}
	if p.SortOrder != nil {
		prefs.SortOrder = *p.SortOrder
	}
	if p.Theme != nil {
		prefs.Theme = *p.Theme
	}
	if p.ShowCompletedTasks != nil {
		prefs.ShowCompletedTasks = *p.ShowCompletedTasks
	}
	if p.NotificationsEnabled != nil {
		prefs.NotificationsEnabled = *p.NotificationsEnabled
	}
	if p.ReminderOffset != nil {
		prefs.ReminderOffset = *p.ReminderOffset
	}
}
