package models

// Summary holds the end-of-stream counters.
type Summary struct {
	EventsProcessed      int64 `json:"events_processed"`
	ProcessNodesObserved int64 `json:"process_nodes_observed"`
	UniqueIDsObserved    int64 `json:"unique_ids_observed"`
}
