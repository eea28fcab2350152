package health

import "context"

// Checker is the part of the knowledge store the health check needs
type Checker interface {
	Ping(ctx context.Context) error
	ChunkCount(ctx context.Context) (int, error)
}

type Response struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
	Store   string `json:"store"`
	Chunks  *int   `json:"chunks,omitempty"`
}

type PingResponse struct {
	Message string `json:"message"`
}
