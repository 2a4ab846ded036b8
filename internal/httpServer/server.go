package httpServer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/player"
	"github.com/owlcms/recorder/internal/sysstats"
)

var Server *http.Server

// API serves the players of a registry.
type API struct {
	Registry *player.Registry
	Sampler  *sysstats.Sampler
	// Events handles /ws, usually a websocket.Hub.
	Events http.Handler
}

// SystemStatus is the answer of GET /api/system.
type SystemStatus struct {
	sysstats.Usage
	OutputBytesPerSecond float64 `json:"outputBytesPerSecond"`
	RemainingSeconds     float64 `json:"remainingSeconds"`
	Low                  bool    `json:"low"`
	Error                string  `json:"error,omitempty"`
}

type actionResult struct {
	Accepted bool         `json:"accepted"`
	Player   player.Stats `json:"player"`
}

// NewRouter builds the routes of the control API
func NewRouter(api *API) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/", http.FileServer(getFileSystem()))
	if api.Events != nil {
		router.Handle("/ws", api.Events)
	}

	r := router.PathPrefix("/api").Subrouter()
	r.HandleFunc("/players", api.listPlayers).Methods(http.MethodGet)
	r.HandleFunc("/players/{id}", api.getPlayer).Methods(http.MethodGet)
	r.HandleFunc("/players/{id}/{action:play|stop|record|stopRecording}", api.playerAction).Methods(http.MethodPost)
	r.HandleFunc("/system", api.system).Methods(http.MethodGet)
	return router
}

// StartServer serves api on port until StopServer is called
func StartServer(port int, api *API) {
	addr := fmt.Sprintf(":%d", port)
	Server = &http.Server{
		Addr:              addr,
		Handler:           NewRouter(api),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logging.InfoLogger.Printf("Starting HTTP server on %s\n", addr)
	if err := Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.ErrorLogger.Printf("Failed to start server: %v", err)
	}
}

// StopServer gracefully shuts down the HTTP server
func StopServer() {
	if Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := Server.Shutdown(ctx); err != nil {
			logging.ErrorLogger.Printf("Server forced to shutdown: %v", err)
		}
		logging.InfoLogger.Println("Server stopped")
	}
}

func (api *API) listPlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Registry.Stats())
}

func (api *API) getPlayer(w http.ResponseWriter, r *http.Request) {
	c, ok := api.Registry.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "no such player", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c.Stats())
}

// playerAction answers 202 when the request was accepted and 409 when the player state refused it.
func (api *API) playerAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c, ok := api.Registry.Get(vars["id"])
	if !ok {
		http.Error(w, "no such player", http.StatusNotFound)
		return
	}

	accepted, err := c.Do(vars["action"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	logging.InfoLogger.Printf("%s %s from %s: accepted=%v", vars["action"], c.Name(), r.RemoteAddr, accepted)

	code := http.StatusAccepted
	if !accepted {
		code = http.StatusConflict
	}
	writeJSON(w, code, actionResult{Accepted: accepted, Player: c.Stats()})
}

func (api *API) system(w http.ResponseWriter, r *http.Request) {
	var st SystemStatus
	if api.Sampler == nil {
		http.Error(w, "system statistics unavailable", http.StatusServiceUnavailable)
		return
	}
	u, err := api.Sampler.Latest()
	if err != nil {
		st.Error = err.Error()
	}
	st.Usage = u
	for _, ps := range api.Registry.Stats() {
		if ps.RecordState != player.RecordNone {
			st.OutputBytesPerSecond += ps.OutputBytesPerSecond
		}
	}
	st.RemainingSeconds = u.Remaining(st.OutputBytesPerSecond)
	st.Low = u.Low(st.OutputBytesPerSecond)
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.ErrorLogger.Printf("Failed to write response: %v", err)
	}
}
