package instrumentation

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// Analytics backends, used as the backend label and resource attribute.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

// Values of the api label of api_retries_total.
const (
	APIMailbox   = "mailbox"
	APIAnalytics = "analytics"
)

// Values of the entity label of mutation_conflicts_total.
const (
	EntitySender = "sender"
	EntityThread = "thread"
)

// Mailbox operation names used for metrics and span names.
const (
	OperationCreateFilter = "create_filter"
	OperationDeleteFilter = "delete_filter"
	OperationListFilters  = "list_filters"
	OperationListLabels   = "list_labels"
	OperationListThreads  = "list_threads"
	OperationSetRead      = "set_read"
	OperationTrash        = "trash"
)

// Resource attribute keys describing the watched mailbox.
const (
	AttrAnalyticsBackend = "senderwatch.analytics.backend"
	AttrAccountDomain    = "senderwatch.account.domain"
)
