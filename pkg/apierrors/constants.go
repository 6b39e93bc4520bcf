package apierrors

const (
	MsgInternalError             = "internalError"
	MsgTooManyRequests           = "tooManyRequests"
	MsgTaskNotFound              = "taskNotFound"
	MsgParentTaskNotFound        = "parentTaskNotFound"
	MsgCategoryNotFound          = "categoryNotFound"
	MsgInvalidTaskPayload        = "invalidTaskPayload"
	MsgInvalidCategoryPayload    = "invalidCategoryPayload"
	MsgInvalidPreferencesPayload = "invalidPreferencesPayload"
	MsgInvalidQuery              = "invalidQuery"
	MsgTitleRequired             = "titleRequired"
	MsgDueDateRequired           = "dueDateRequired"
	MsgCategoryRequired          = "categoryRequired"
	MsgInvalidStatus             = "invalidStatus"
	MsgEmptyUpdate               = "emptyUpdate"
	MsgFailCreateTask            = "failCreateTask"
	MsgFailUpdateTask            = "failUpdateTask"
	MsgFailDeleteTask            = "failDeleteTask"
	MsgFailSaveCategory          = "failSaveCategory"
	MsgFailSavePreferences       = "failSavePreferences"
)
