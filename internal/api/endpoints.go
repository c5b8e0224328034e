package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// LessonUpsert is the body of PUT /lesson. ID, Unit and Spec are omitted
// when empty; the platform treats a missing id as "create new".
type LessonUpsert struct {
	ID           string `json:"id,omitempty"`
	FriendlyName string `json:"friendlyName"`
	Name         string `json:"name"`
	Unit         string `json:"unit,omitempty"`
	Project      string `json:"project"`
	Spec         string `json:"spec,omitempty"`
	LessonClass  int    `json:"lessonClass"`
}

// UnitEdge is one lesson's adjacency entry inside a unit graph.
type UnitEdge struct {
	Next       []string `json:"next"`
	Previous   []string `json:"previous"`
	RequireAll bool     `json:"requireAll"`
}

// UnitUpsert is the body of PUT /unit.
type UnitUpsert struct {
	ID           string              `json:"id,omitempty"`
	FriendlyName string              `json:"friendlyName"`
	Name         string              `json:"name"`
	Data         map[string]UnitEdge `json:"data"`
}

// RemoteFile is one entry of GET /file/list.
type RemoteFile struct {
	ID     string `json:"id"`
	Hash   string `json:"hash"`
	Format string `json:"format"`
}

type idResponse struct {
	ID string `json:"id"`
}

// LookupID maps a friendly name to its platform ID. A 404 is not an error:
// it returns "" meaning the content does not exist yet.
func (c *Client) LookupID(ctx context.Context, name string) (string, error) {
	var resp idResponse
	err := c.Request(ctx, http.MethodGet, "/id/"+url.PathEscape(name), nil, &resp)
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// LessonProject returns the project backing an existing lesson, or "" when
// the lesson has no record yet.
func (c *Client) LessonProject(ctx context.Context, lessonID string) (string, error) {
	var resp struct {
		Project string `json:"project"`
	}
	err := c.Request(ctx, http.MethodGet, "/lesson/"+url.PathEscape(lessonID), nil, &resp)
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return resp.Project, nil
}

// CreateProject provisions a fresh backing project.
func (c *Client) CreateProject(ctx context.Context) (string, error) {
	var resp idResponse
	if err := c.Request(ctx, http.MethodPost, "/project/new", nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpsertLesson creates or updates a lesson record and returns its ID.
func (c *Client) UpsertLesson(ctx context.Context, lesson LessonUpsert) (string, error) {
	var resp idResponse
	if err := c.Request(ctx, http.MethodPut, "/lesson", lesson, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpsertUnit creates or updates a unit record and returns its ID.
func (c *Client) UpsertUnit(ctx context.Context, unit UnitUpsert) (string, error) {
	var resp idResponse
	if err := c.Request(ctx, http.MethodPut, "/unit", unit, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UploadConfig uploads a lesson's merged config.json.
func (c *Client) UploadConfig(ctx context.Context, lessonID string, config []byte) error {
	return c.Upload(ctx, "/config/upload/"+url.PathEscape(lessonID), "config", "config.json", config, nil)
}

// UploadVideo uploads a lesson's video blob.
func (c *Client) UploadVideo(ctx context.Context, lessonID string, video []byte) error {
	return c.Upload(ctx, "/video/upload/"+url.PathEscape(lessonID), "video", "video.cv", video, nil)
}

// ProjectToken requests a one-time container access token for a project.
func (c *Client) ProjectToken(ctx context.Context, projectID string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.Request(ctx, http.MethodGet, "/token/"+url.PathEscape(projectID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// ListFiles returns the remote image listing used for upload de-duplication.
func (c *Client) ListFiles(ctx context.Context) ([]RemoteFile, error) {
	var resp []RemoteFile
	if err := c.Request(ctx, http.MethodGet, "/file/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// UploadImage uploads one image blob and returns its platform ID.
func (c *Client) UploadImage(ctx context.Context, format, filename string, content []byte) (string, error) {
	var resp idResponse
	err := c.Upload(ctx, "/file/image/upload/"+url.PathEscape(format), "image", filename, content, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func isNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}
