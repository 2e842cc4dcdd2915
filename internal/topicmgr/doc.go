// Package topicmgr is the catalogue of topics the desk knows about.
//
// It records definitions, not subscribers: which topics exist, whether the backend pushes
// them or UI code fires them locally, and what their payload looks like. The catalogue
// backs topic discovery in bridgectl and lets typed events be checked when they are
// declared. Dispatch itself lives in the bridge and never consults it, so firing an
// unregistered topic is still legal.
//
// Topic names are lowercase identifiers with at most one family separator:
//
//	order_update
//	update_data:settings
//
// Definitions are registered with the manager:
//
//	var OrderUpdate = topicmgr.MustRegister(topicmgr.DefineBackend(topicmgr.Definition{
//		Name:        "order_update",
//		Description: "An order changed state",
//		Example:     `{"orderId":"42","status":"FILLED"}`,
//	}))
//
// and discovered with List, ListByFamily and ListByScope.
package topicmgr
