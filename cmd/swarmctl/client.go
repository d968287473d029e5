package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brindle-systems/swarm/pkg/service"
)

// apiClient is a minimal HTTP client for the Workflow Service's REST
// surface, just enough for swarmctl's subcommands.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *apiClient) get(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeOrError(resp, out)
}

func (c *apiClient) post(path string, body interface{}, out interface{}) error {
	var reader bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = *bytes.NewReader(raw)
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", &reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeOrError(resp, out)
}

func decodeOrError(resp *http.Response, out interface{}) error {
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("swarmd: %s", apiErr.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) createWorkflow(req service.CreateWorkflowRequest) (*service.CreateWorkflowResponse, error) {
	var out service.CreateWorkflowResponse
	if err := c.post("/api/v1/workflows", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) executeWorkflow(id string) (*service.ExecuteWorkflowResponse, error) {
	var out service.ExecuteWorkflowResponse
	if err := c.post("/api/v1/workflows/"+id+"/execute", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) workflowStatus(id string) (*service.GetWorkflowStatusResponse, error) {
	var out service.GetWorkflowStatusResponse
	if err := c.get("/api/v1/workflows/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) listActiveWorkflows(userID string) (*service.ListActiveWorkflowsResponse, error) {
	path := "/api/v1/workflows"
	if userID != "" {
		path += "?user_id=" + userID
	}
	var out service.ListActiveWorkflowsResponse
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) control(action, id string) (*service.ControlResponse, error) {
	var out service.ControlResponse
	if err := c.post("/api/v1/workflows/"+id+"/"+action, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) health() (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.get("/health", &out); err != nil {
		return nil, err
	}
	return out, nil
}
