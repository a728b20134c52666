package viewer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/graph"
)

// --- Graph types (the snapshot the visualiser renders) ---

type GraphNode struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Assignee   string  `json:"assignee,omitempty"`
	Duration   float64 `json:"duration"`
	IsCritical bool    `json:"is_critical"`
	IsCyclic   bool    `json:"is_cyclic"`
	WaveIndex  int     `json:"wave_index"`
	Slack      float64 `json:"slack"`
}

type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type GraphMetadata struct {
	CreatedAt     string  `json:"created_at"`
	TotalTasks    int     `json:"total_tasks"`
	TotalWaves    int     `json:"total_waves"`
	TotalDuration float64 `json:"total_duration"`
}

type Graph struct {
	Nodes        []GraphNode   `json:"nodes"`
	Edges        []GraphEdge   `json:"edges"`
	CriticalPath []string      `json:"critical_path"`
	Cyclic       []string      `json:"cyclic_nodes"`
	CycleMembers []string      `json:"cycle_members,omitempty"`
	Metadata     GraphMetadata `json:"metadata"`
}

// Input is the body accepted by POST /graph.
type Input struct {
	Tasks        []graph.Task       `json:"tasks"`
	Dependencies []graph.Dependency `json:"dependencies,omitempty"`
}

// InputFrom turns a built graph back into a POST /graph body. Durations are
// the graph's, so capacity scaling already applied is kept.
func InputFrom(g *graph.ProjectGraph) Input {
	in := Input{Tasks: make([]graph.Task, 0, len(g.Order))}
	for _, id := range g.Order {
		n := g.Nodes[id]
		in.Tasks = append(in.Tasks, graph.Task{
			ID:           n.ID,
			Name:         n.Name,
			DurationDays: n.Duration,
			Assignee:     n.Assignee,
			DependsOn:    append([]string(nil), n.Predecessors...),
		})
	}
	return in
}

// ToGraph converts a project graph and its analysis into the normalised
// Graph the UI renders. Nodes and edges follow input order.
func ToGraph(g *graph.ProjectGraph, res *cpm.CPMResult, now time.Time) *Graph {
	cyclic := make(map[string]bool, len(res.Cyclic))
	for _, id := range res.Cyclic {
		cyclic[id] = true
	}

	nodes := make([]GraphNode, 0, len(g.Order))
	var edges []GraphEdge
	for _, id := range g.Order {
		n := g.Nodes[id]
		gn := GraphNode{
			ID:        n.ID,
			Name:      n.Name,
			Assignee:  n.Assignee,
			Duration:  n.Duration,
			IsCyclic:  cyclic[id],
			WaveIndex: -1,
		}
		if ts, ok := res.Tasks[id]; ok {
			gn.IsCritical = ts.IsCritical
			gn.WaveIndex = ts.Wave
			gn.Slack = ts.Slack
		}
		nodes = append(nodes, gn)

		for _, pred := range n.Predecessors {
			edges = append(edges, GraphEdge{From: pred, To: id})
		}
	}

	return &Graph{
		Nodes:        nodes,
		Edges:        edges,
		CriticalPath: res.CriticalPath,
		Cyclic:       res.Cyclic,
		CycleMembers: res.CycleMembers,
		Metadata: GraphMetadata{
			CreatedAt:     now.UTC().Format(time.RFC3339),
			TotalTasks:    len(nodes),
			TotalWaves:    len(res.Waves),
			TotalDuration: res.TotalDuration,
		},
	}
}

// Snapshot builds and analyses tasks, returning the renderable graph.
func Snapshot(in Input, anchor cpm.Anchor) (*Graph, error) {
	g, err := graph.Build(in.Tasks, in.Dependencies)
	if err != nil {
		return nil, err
	}
	res, err := cpm.AnalyzeWith(g, cpm.Options{Anchor: anchor})
	if err != nil {
		return nil, err
	}
	return ToGraph(g, res, time.Now()), nil
}

// --- HTTP server ---

type server struct {
	mu     sync.RWMutex
	graph  *Graph
	anchor cpm.Anchor
}

func (s *server) handlePostGraph(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	g, err := Snapshot(in, s.anchor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()

	zap.L().Debug("graph loaded", zap.Int("tasks", len(g.Nodes)), zap.Strings("critical_path", g.CriticalPath))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(g)
}

func (s *server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	if g == nil {
		http.Error(w, "no graph loaded", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}

// Handler returns the viewer routes, optionally preloaded with a graph.
func Handler(initial *Graph, anchor cpm.Anchor) http.Handler {
	srv := &server{graph: initial, anchor: anchor}
	mux := http.NewServeMux()

	mux.HandleFunc("/graph", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			srv.handlePostGraph(w, r)
		case http.MethodGet:
			srv.handleGetGraph(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("sprintloom viewer\n\nGET  /graph  current graph snapshot\nPOST /graph  load {\"tasks\": [...]}\n"))
	})

	return mux
}

// Start launches the viewer HTTP server on the given port in the background.
// Returns the base URL (e.g. "http://localhost:7777") or an error.
func Start(port int, initial *Graph, anchor cpm.Anchor) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return "", fmt.Errorf("listen on port %d: %w", port, err)
	}

	go func() {
		if err := http.Serve(ln, Handler(initial, anchor)); err != nil {
			zap.L().Error("viewer stopped", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("http://localhost:%d", port)
	return addr, nil
}

// PostTasks sends tasks to a running viewer server.
func PostTasks(addr string, in Input) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	resp, err := http.Post(addr+"/graph", "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("POST /graph: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /graph returned %d", resp.StatusCode)
	}

	return nil
}

// IsPortOpen checks if something is listening on the given address.
func IsPortOpen(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
