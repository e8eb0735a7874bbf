// Package websocket pushes board updates to spectators and players.
//
// A central Hub keeps the connections grouped by board ID. Clients connect
// to /ws?board=<id>; after every turn the API broadcasts the new board and
// the moves that produced it to every client watching that board. Incoming
// client messages are ignored apart from keep-alive control frames.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("board"))
//	})
//
// All bookkeeping happens on the Run goroutine; ServeWS and the Broadcast
// methods only exchange messages with it.
package websocket
