package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// MatchService handles match run operations.
type MatchService struct {
	c *Client
}

type runListResponse struct {
	Runs    []MatchRunSummary `json:"runs"`
	HasMore bool              `json:"has_more"`
}

func pageParams(limit, offset int) url.Values {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	return params
}

// Submit stores the embeddings as a new run.
func (s *MatchService) Submit(ctx context.Context, req *SubmitRequest) (*MatchRun, error) {
	var run MatchRun
	if err := s.c.post(ctx, "/api/v1/matches", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns run summaries, newest first.
func (s *MatchService) List(ctx context.Context, opts *ListOptions) ([]MatchRunSummary, bool, error) {
	var params url.Values
	if opts != nil {
		params = pageParams(opts.Limit, opts.Offset)
	}

	var resp runListResponse
	if err := s.c.get(ctx, "/api/v1/matches", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Runs, resp.HasMore, nil
}

// Get returns a run with its records.
func (s *MatchService) Get(ctx context.Context, id string) (*MatchRun, error) {
	var run MatchRun
	if err := s.c.get(ctx, "/api/v1/matches/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Records returns a run's records as columns and rows.
func (s *MatchService) Records(ctx context.Context, id string) (*RecordTable, error) {
	var table RecordTable
	if err := s.c.get(ctx, "/api/v1/matches/"+url.PathEscape(id)+"/records", nil, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// Delete removes a run.
func (s *MatchService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, "/api/v1/matches/"+url.PathEscape(id), nil, nil)
}

// EventService reads and prunes the run history.
type EventService struct {
	c *Client
}

type eventListResponse struct {
	Events  []RunEvent `json:"events"`
	HasMore bool       `json:"has_more"`
}

// Query returns run events, newest first.
func (s *EventService) Query(ctx context.Context, opts *EventQueryOptions) ([]RunEvent, bool, error) {
	params := url.Values{}
	if opts != nil {
		params = pageParams(opts.Limit, opts.Offset)
		if opts.RunID != "" {
			params.Set("run_id", opts.RunID)
		}
		if opts.Action != "" {
			params.Set("action", opts.Action)
		}
		if opts.Since != nil {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
	}

	var resp eventListResponse
	if err := s.c.get(ctx, "/api/v1/events", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Events, resp.HasMore, nil
}

// Purge deletes events older than retentionDays and returns how many were removed.
func (s *EventService) Purge(ctx context.Context, retentionDays int) (int, error) {
	params := url.Values{}
	if retentionDays > 0 {
		params.Set("retention_days", strconv.Itoa(retentionDays))
	}

	var resp struct {
		Deleted int `json:"deleted"`
	}
	if err := s.c.del(ctx, "/api/v1/events", params, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}
