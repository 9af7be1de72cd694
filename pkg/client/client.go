// Package client is a Go client for the distillai HTTP API.
//
// Methods mirror [store.Store]: each takes the owner it acts for, sent in the
// X-Owner-ID header, and failures come back as *store.Error values of the
// same kind the server saw, so
//
//	_, err := c.GetNode(ctx, owner, id)
//	if errors.Is(err, store.ErrNotFound) { ... }
//
// works the same against a local store and a remote one. A write rejected by
// a server in read-only mode returns store.ErrReadOnly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/paduck86/distillai/pkg/importer"
	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/server"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/datatypes"
)

// Client is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	ownerHeader string
}

var _ importer.NodeCreator = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default client with its 30 second timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithOwnerHeader changes the header carrying the owner id.
func WithOwnerHeader(name string) Option {
	return func(c *Client) { c.ownerHeader = name }
}

// New returns a client for the server at baseURL, e.g.
// "http://localhost:8080", without a trailing slash.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		ownerHeader: server.DefaultOwnerHeader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a failure response that does not map to a store error.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("API error: status=%d kind=%s: %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("API error: status=%d, body=%s", e.StatusCode, e.Message)
}

// do sends body as JSON and decodes the response into out when it is not nil.
// A zero owner sends no owner header.
func (c *Client) do(ctx context.Context, owner models.UserID, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if !owner.IsZero() {
		req.Header.Set(c.ownerHeader, owner.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return responseError(resp.StatusCode, body)
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func responseError(status int, body []byte) error {
	var e server.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return &APIError{StatusCode: status, Message: string(body)}
	}
	if e.Kind == server.KindReadOnly {
		return store.ErrReadOnly
	}
	if kind := store.ParseKind(e.Kind); kind != store.KindUnknown {
		return &store.Error{Kind: kind, Message: e.Error}
	}
	return &APIError{StatusCode: status, Kind: e.Kind, Message: e.Error}
}

func withParent[T fmt.Stringer](path string, parent *T) string {
	if parent == nil {
		return path
	}
	return path + "?parent_id=" + url.QueryEscape((*parent).String())
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	if err := c.do(ctx, models.UserID{}, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) ReadOnly(ctx context.Context) (bool, error) {
	var state server.ReadOnlyState
	if err := c.do(ctx, models.UserID{}, http.MethodGet, "/api/admin/read-only", nil, &state); err != nil {
		return false, err
	}
	return state.ReadOnly, nil
}

// SetReadOnly toggles write rejection on the server.
func (c *Client) SetReadOnly(ctx context.Context, readOnly bool) error {
	return c.do(ctx, models.UserID{}, http.MethodPost, "/api/admin/read-only", server.ReadOnlyState{ReadOnly: readOnly}, nil)
}

// Tree

func (c *Client) CreateNode(ctx context.Context, owner models.UserID, in store.NewNode) (*models.Node, error) {
	var node models.Node
	if err := c.do(ctx, owner, http.MethodPost, "/api/nodes", in, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) GetNode(ctx context.Context, owner models.UserID, id models.NodeID) (*models.Node, error) {
	var node models.Node
	if err := c.do(ctx, owner, http.MethodGet, "/api/nodes/"+id.String(), nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) ListChildren(ctx context.Context, owner models.UserID, parent *models.NodeID) ([]*models.Node, error) {
	var nodes []*models.Node
	if err := c.do(ctx, owner, http.MethodGet, withParent("/api/nodes", parent), nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) ListTree(ctx context.Context, owner models.UserID) ([]*models.Node, error) {
	var nodes []*models.Node
	if err := c.do(ctx, owner, http.MethodGet, "/api/tree", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) UpdateNode(ctx context.Context, owner models.UserID, id models.NodeID, in store.NodeUpdate) (*models.Node, error) {
	var node models.Node
	if err := c.do(ctx, owner, http.MethodPatch, "/api/nodes/"+id.String(), in, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// MoveNode moves a node; pass store.AppendPosition to append.
func (c *Client) MoveNode(ctx context.Context, owner models.UserID, id models.NodeID, newParent *models.NodeID, position int) (*models.Node, error) {
	req := server.MoveNodeRequest{ParentID: newParent, Position: &position}
	var node models.Node
	if err := c.do(ctx, owner, http.MethodPost, "/api/nodes/"+id.String()+"/move", req, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) ReorderNodes(ctx context.Context, owner models.UserID, parent *models.NodeID, ordered []models.NodeID) error {
	req := server.ReorderNodesRequest{ParentID: parent, Ordered: ordered}
	return c.do(ctx, owner, http.MethodPut, "/api/nodes/reorder", req, nil)
}

func (c *Client) DeleteNode(ctx context.Context, owner models.UserID, id models.NodeID) error {
	return c.do(ctx, owner, http.MethodDelete, "/api/nodes/"+id.String(), nil, nil)
}

func (c *Client) ResolveContent(ctx context.Context, owner models.UserID, id models.NodeID) (*models.EffectiveContent, error) {
	var content models.EffectiveContent
	if err := c.do(ctx, owner, http.MethodGet, "/api/nodes/"+id.String()+"/content", nil, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// Synced blocks

func (c *Client) CreateSyncedBlock(ctx context.Context, owner models.UserID, content datatypes.JSON) (*models.SyncedBlock, error) {
	var sb models.SyncedBlock
	if err := c.do(ctx, owner, http.MethodPost, "/api/synced-blocks", server.ContentRequest{Content: content}, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

func (c *Client) GetSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID) (*models.SyncedBlock, error) {
	var sb models.SyncedBlock
	if err := c.do(ctx, owner, http.MethodGet, "/api/synced-blocks/"+id.String(), nil, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

func (c *Client) ListSyncedBlocks(ctx context.Context, owner models.UserID) ([]*models.SyncedBlock, error) {
	var blocks []*models.SyncedBlock
	if err := c.do(ctx, owner, http.MethodGet, "/api/synced-blocks", nil, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (c *Client) UpdateSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID, content datatypes.JSON) (*models.SyncedBlock, error) {
	var sb models.SyncedBlock
	if err := c.do(ctx, owner, http.MethodPut, "/api/synced-blocks/"+id.String(), server.ContentRequest{Content: content}, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

func (c *Client) DeleteSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID) error {
	return c.do(ctx, owner, http.MethodDelete, "/api/synced-blocks/"+id.String(), nil, nil)
}

func (c *Client) ConvertToSynced(ctx context.Context, owner models.UserID, nodeID models.NodeID) (*models.SyncedBlock, error) {
	var sb models.SyncedBlock
	if err := c.do(ctx, owner, http.MethodPost, "/api/nodes/"+nodeID.String()+"/convert", nil, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

func (c *Client) LinkSyncedBlock(ctx context.Context, owner models.UserID, nodeID models.NodeID, syncedID models.SyncedBlockID) (*models.Node, error) {
	var node models.Node
	if err := c.do(ctx, owner, http.MethodPut, "/api/nodes/"+nodeID.String()+"/link", server.LinkRequest{SyncedBlockID: syncedID}, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) UnlinkSyncedBlock(ctx context.Context, owner models.UserID, nodeID models.NodeID) (*models.Node, error) {
	var node models.Node
	if err := c.do(ctx, owner, http.MethodDelete, "/api/nodes/"+nodeID.String()+"/link", nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) GetReferences(ctx context.Context, owner models.UserID, syncedID models.SyncedBlockID) ([]*models.Node, error) {
	var nodes []*models.Node
	if err := c.do(ctx, owner, http.MethodGet, "/api/synced-blocks/"+syncedID.String()+"/references", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Folders

func (c *Client) CreateFolder(ctx context.Context, owner models.UserID, in store.NewFolder) (*models.Folder, error) {
	var folder models.Folder
	if err := c.do(ctx, owner, http.MethodPost, "/api/folders", in, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) GetFolder(ctx context.Context, owner models.UserID, id models.FolderID) (*models.Folder, error) {
	var folder models.Folder
	if err := c.do(ctx, owner, http.MethodGet, "/api/folders/"+id.String(), nil, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) ListFolders(ctx context.Context, owner models.UserID, parent *models.FolderID) ([]*models.Folder, error) {
	var folders []*models.Folder
	if err := c.do(ctx, owner, http.MethodGet, withParent("/api/folders", parent), nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

func (c *Client) UpdateFolder(ctx context.Context, owner models.UserID, id models.FolderID, in store.FolderUpdate) (*models.Folder, error) {
	var folder models.Folder
	if err := c.do(ctx, owner, http.MethodPatch, "/api/folders/"+id.String(), in, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) MoveFolder(ctx context.Context, owner models.UserID, id models.FolderID, newParent *models.FolderID, position int) (*models.Folder, error) {
	req := server.MoveFolderRequest{ParentID: newParent, Position: &position}
	var folder models.Folder
	if err := c.do(ctx, owner, http.MethodPost, "/api/folders/"+id.String()+"/move", req, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) ReorderFolders(ctx context.Context, owner models.UserID, parent *models.FolderID, ordered []models.FolderID) error {
	req := server.ReorderFoldersRequest{ParentID: parent, Ordered: ordered}
	return c.do(ctx, owner, http.MethodPut, "/api/folders/reorder", req, nil)
}

func (c *Client) DeleteFolder(ctx context.Context, owner models.UserID, id models.FolderID) error {
	return c.do(ctx, owner, http.MethodDelete, "/api/folders/"+id.String(), nil, nil)
}

// Categories

func (c *Client) CreateCategory(ctx context.Context, owner models.UserID, in store.NewCategory) (*models.Category, error) {
	var category models.Category
	if err := c.do(ctx, owner, http.MethodPost, "/api/categories", in, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) GetCategory(ctx context.Context, owner models.UserID, id models.CategoryID) (*models.Category, error) {
	var category models.Category
	if err := c.do(ctx, owner, http.MethodGet, "/api/categories/"+id.String(), nil, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) ListCategories(ctx context.Context, owner models.UserID) ([]*models.Category, error) {
	var categories []*models.Category
	if err := c.do(ctx, owner, http.MethodGet, "/api/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) UpdateCategory(ctx context.Context, owner models.UserID, id models.CategoryID, in store.CategoryUpdate) (*models.Category, error) {
	var category models.Category
	if err := c.do(ctx, owner, http.MethodPatch, "/api/categories/"+id.String(), in, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) ReorderCategories(ctx context.Context, owner models.UserID, ordered []models.CategoryID) error {
	return c.do(ctx, owner, http.MethodPut, "/api/categories/reorder", server.ReorderCategoriesRequest{Ordered: ordered}, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, owner models.UserID, id models.CategoryID) error {
	return c.do(ctx, owner, http.MethodDelete, "/api/categories/"+id.String(), nil, nil)
}

// Import

// ImportMarkdown uploads a Markdown document; see importer.Markdown.
func (c *Client) ImportMarkdown(ctx context.Context, owner models.UserID, parent *models.NodeID, name string, src []byte) (*importer.Result, error) {
	req := server.ImportRequest{ParentID: parent, Name: name, Markdown: string(src)}
	var res importer.Result
	if err := c.do(ctx, owner, http.MethodPost, "/api/import/markdown", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
