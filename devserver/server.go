// ABOUTME: In-process fake of the TradeHand REST API for local development
// ABOUTME: Serves job/client/invoice CRUD plus the Prometheus metrics endpoint
package devserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tradehand/tradehand/metrics"
	"github.com/tradehand/tradehand/models"
)

// Server is an in-memory stand-in for the production API, used when
// developing the client without network access to a real backend. Records
// are held per entity type, keyed by server id.
type Server struct {
	mu      sync.Mutex
	records map[models.EntityType]map[string]json.RawMessage
}

func NewServer() *Server {
	records := make(map[models.EntityType]map[string]json.RawMessage)
	for _, entity := range models.EntityTypes {
		records[entity] = make(map[string]json.RawMessage)
	}
	return &Server{records: records}
}

// Router builds the HTTP routes mirroring the production API surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/api/{entity}", s.createHandler).Methods("POST")
	r.HandleFunc("/api/{entity}", s.listHandler).Methods("GET")
	r.HandleFunc("/api/{entity}/{id}", s.getHandler).Methods("GET")
	r.HandleFunc("/api/{entity}/{id}", s.updateHandler).Methods("PUT")
	r.HandleFunc("/api/{entity}/{id}", s.deleteHandler).Methods("DELETE")
	return r
}

// entityFromRequest resolves the {entity} path segment against the known
// collection paths.
func entityFromRequest(r *http.Request) (models.EntityType, bool) {
	path := mux.Vars(r)["entity"]
	for _, entity := range models.EntityTypes {
		if entity.APIPath() == path {
			return entity, true
		}
	}
	return "", false
}

func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) {
	entity, ok := entityFromRequest(r)
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid JSON body", http.StatusUnprocessableEntity)
		return
	}

	id := uuid.New().String()
	payload["id"] = id
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to encode record", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.records[entity][id] = data
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	entity, ok := entityFromRequest(r)
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}

	s.mu.Lock()
	items := make([]json.RawMessage, 0, len(s.records[entity]))
	for _, data := range s.records[entity] {
		items = append(items, data)
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	entity, ok := entityFromRequest(r)
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}

	s.mu.Lock()
	data, found := s.records[entity][mux.Vars(r)["id"]]
	s.mu.Unlock()

	if !found {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) updateHandler(w http.ResponseWriter, r *http.Request) {
	entity, ok := entityFromRequest(r)
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}
	id := mux.Vars(r)["id"]

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid JSON body", http.StatusUnprocessableEntity)
		return
	}

	// Whole-record overwrite, matching the client's last-writer-wins
	// replay semantics.
	payload["id"] = id
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to encode record", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	_, found := s.records[entity][id]
	if found {
		s.records[entity][id] = data
	}
	s.mu.Unlock()

	if !found {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	entity, ok := entityFromRequest(r)
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}

	s.mu.Lock()
	delete(s.records[entity], mux.Vars(r)["id"])
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// Count returns the number of stored records for an entity type.
func (s *Server) Count(entity models.EntityType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[entity])
}
