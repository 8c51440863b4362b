// Package server exposes vtree over HTTP and WebSocket.
//
// Routes:
//
//	GET  /healthz  liveness probe, answers "ok"
//	GET  /metrics  Prometheus exposition
//	POST /diff     {"old": tree, "new": tree} -> {"patches": [...]}
//	POST /render   {"html": "..."} -> tree
//	GET  /ws       binary protocol frames, one component host per connection
//
// Every WebSocket connection gets its own component.Host backed by an
// htmldom.Document. Each binary message is handed to Host.ProcessMessage
// and the reply frame is written back. Hosts are initialized when the
// connection opens and cleaned up when it closes.
package server
