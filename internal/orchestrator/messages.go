package orchestrator

// User-facing notification messages.
const (
	msgAutoArchiveEnabled  = "Auto archive enabled!"
	msgAutoArchiveDisabled = "Auto archive disabled!"
	msgThreadDeleted       = "Thread deleted!"
	msgMarkedRead          = "Marked as read"
	msgMarkedUnread        = "Marked as unread"

	msgCreateFilterFailed = "There was an error creating the filter to auto archive the emails: "
	msgDeleteFilterFailed = "There was an error deleting the filter to auto archive the emails: "
	msgTrashFailed        = "There was an error deleting the thread: "
	msgMarkFailed         = "There was an error while marking mail: "
)

// Notification operations.
const (
	OpCreateFilter = "create_filter"
	OpDeleteFilter = "delete_filter"
	OpMarkRead     = "mark_read"
	OpMarkUnread   = "mark_unread"
	OpTrash        = "trash"
)
