// Package server wires HTTP handlers into a gorilla/mux router for the chat
// hub.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

const (
	// RoomPath serves the room channel (GET upgrade) and posting (POST).
	RoomPath = "/room/1"
	// MessagesPath serves the plain text history.
	MessagesPath = "/messages"
)

// Routes returns the router with every application route. Requests whose
// method does not match a route get 405 Method Not Allowed.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.traceRequests)
	r.HandleFunc("/", HealthHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/test", TestPageHandler).Methods(http.MethodGet)
	r.HandleFunc(MessagesPath, s.handleMessages).Methods(http.MethodGet)
	r.HandleFunc(RoomPath, s.handleRoomSocket).Methods(http.MethodGet)
	r.HandleFunc(RoomPath, s.handleRoomPost).Methods(http.MethodPost)
	return r
}
