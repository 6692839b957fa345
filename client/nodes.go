package client

import (
	"context"
	"net/url"
)

// NodeService manages the node registry. The server only exposes it when
// nodes resolve from Postgres.
type NodeService struct {
	c *Client
}

type registerResponse struct {
	Registered int `json:"registered"`
}

type nodeListResponse struct {
	Nodes   []Node `json:"nodes"`
	HasMore bool   `json:"has_more"`
}

// Register adds or updates one node and returns the rows written.
func (s *NodeService) Register(ctx context.Context, req *NodeRequest) (int, error) {
	var resp registerResponse
	if err := s.c.post(ctx, "/api/v1/nodes", req, &resp); err != nil {
		return 0, err
	}
	return resp.Registered, nil
}

// RegisterBulk adds or updates up to 1000 nodes in one call.
func (s *NodeService) RegisterBulk(ctx context.Context, nodes []NodeRequest) (int, error) {
	var resp registerResponse
	if err := s.c.post(ctx, "/api/v1/nodes/bulk", nodes, &resp); err != nil {
		return 0, err
	}
	return resp.Registered, nil
}

// List returns registered nodes ordered by id.
func (s *NodeService) List(ctx context.Context, opts *NodeListOptions) ([]Node, bool, error) {
	params := url.Values{}
	if opts != nil {
		params = pageParams(opts.Limit, opts.Offset)
		if opts.Type != "" {
			params.Set("type", opts.Type)
		}
	}

	var resp nodeListResponse
	if err := s.c.get(ctx, "/api/v1/nodes", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Nodes, resp.HasMore, nil
}

// Delete removes a node from the registry.
func (s *NodeService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, "/api/v1/nodes/"+url.PathEscape(id), nil, nil)
}
