// Package eventbus provides the in-process topic registry that backs the event bridge.
//
// It has two layers:
//
//   - Listeners holds the ordered listener list for a single topic and performs the
//     synchronous fan-out.
//   - Registry maps topic names to their Listeners, keeps an aggregate listener count and
//     deletes a topic's entry as soon as its last listener goes away.
//
// Topics are opaque strings. The registry does not understand families, wildcards or
// prefixes; "update_data:settings" and "update_data" are unrelated keys as far as it is
// concerned.
//
// Listeners are identified by pointer. Every Add returns a *Subscription that removes
// exactly the registration it was issued for:
//
//	reg := eventbus.NewRegistry[string]()
//	sub := reg.AddFunc("notification", func(msg string) {
//		fmt.Println(msg)
//	})
//	defer sub.Cancel()
//
//	_ = reg.Fire("notification", "order filled")
//
// Fire iterates a snapshot of the listeners taken when it starts and recovers panics per
// listener, so one failing listener never hides an event from the others.
package eventbus
