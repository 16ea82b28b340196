// Command chief runs the Chief-of-Staff orchestrator.
//
// Usage:
//
//	chief serve --config chief.yaml         # gRPC, NATS bridge and /metrics
//	chief submit "Schedule a meeting with Jane Doe tomorrow at 2:30 pm"
//	chief submit --addr localhost:50051 --json "Create a task to renew the passport"
//	echo '{"text":"Post on LinkedIn about our launch","user_id":"u1"}' | chief submit -
//	chief classify "Send an email to the team about the offsite"
//	chief routes
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
