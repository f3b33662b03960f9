package api

import "encoding/json"

// AnalysisResult is the backend's analysis payload. It is produced entirely
// by the remote service and never mutated by this client.
type AnalysisResult struct {
	ID              string             `json:"id"`
	RepoURL         string             `json:"repo_url"`
	Repository      RepositoryInfo     `json:"repository"`
	TechStack       map[string]float64 `json:"tech_stack,omitempty"`
	KeyFiles        []KeyFile          `json:"key_files,omitempty"`
	SmartFiles      []SmartFileReport  `json:"smart_file_analysis,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// RepositoryInfo is the repository metadata section of an analysis.
type RepositoryInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Language      string `json:"language,omitempty"`
	Stars         int    `json:"stars,omitempty"`
}

// KeyFile is one of the files the backend ranked as important.
type KeyFile struct {
	Path       string  `json:"path"`
	Importance float64 `json:"importance"`
	Reason     string  `json:"reason,omitempty"`
}

// SmartFileReport is the per-file deep-analysis section.
type SmartFileReport struct {
	Path       string  `json:"path"`
	Summary    string  `json:"summary,omitempty"`
	Complexity float64 `json:"complexity,omitempty"`
}

// Graph is the dependency graph for an analysis. The backend emits the edge
// list under either "edges" or "links"; both are accepted on decode.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is a single module or file in the dependency graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Group string `json:"group,omitempty"`
}

// GraphEdge is a directed dependency between two nodes.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// UnmarshalJSON accepts "links" as an alias for "edges".
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nodes []GraphNode `json:"nodes"`
		Edges []GraphEdge `json:"edges"`
		Links []GraphEdge `json:"links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Nodes = raw.Nodes
	g.Edges = raw.Edges
	if len(g.Edges) == 0 {
		g.Edges = raw.Links
	}
	return nil
}

// FileTreeNode is one entry of the bounded file tree.
type FileTreeNode struct {
	Path     string         `json:"path"`
	Name     string         `json:"name"`
	Type     string         `json:"type"` // "file" or "dir"
	Size     int64          `json:"size,omitempty"`
	Children []FileTreeNode `json:"children,omitempty"`
}

// Question is a single generated question.
type Question struct {
	ID         string `json:"id,omitempty"`
	Text       string `json:"text"`
	Type       string `json:"type,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
}

// QuestionSet is the question lookup/generation response envelope.
type QuestionSet struct {
	Success   bool       `json:"success"`
	Questions []Question `json:"questions"`
}

// GenerateRequest is the body of a question-generation request.
type GenerateRequest struct {
	RepoURL         string          `json:"repo_url"`
	AnalysisResult  *AnalysisResult `json:"analysis_result,omitempty"`
	QuestionType    string          `json:"question_type,omitempty"`
	Difficulty      string          `json:"difficulty,omitempty"`
	ForceRegenerate bool            `json:"force_regenerate,omitempty"`
}

// RecentAnalysis is one row of the recent-analyses listing.
type RecentAnalysis struct {
	ID        string `json:"id"`
	RepoURL   string `json:"repo_url"`
	RepoName  string `json:"repo_name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// recentResponse is the wire envelope for GET /analysis/recent.
type recentResponse struct {
	Success bool             `json:"success"`
	Data    []RecentAnalysis `json:"data"`
}

// pendingResponse is the 202 body returned while an analysis is computing.
type pendingResponse struct {
	Detail string `json:"detail"`
}
