// Package client is a typed client of the Lophoc REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classroom"
	"github.com/trezcool/lophoc/core/reward"
	"github.com/trezcool/lophoc/core/roster"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/services/spreadsheet"
)

const (
	defaultTimeout    = 30 * time.Second
	requestFailedText = "request failed"
)

// RequestError is a request the backend rejected or that never reached it (Status 0).
type RequestError struct {
	Status int
	Detail string
	Err    error // transport error, if any
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return e.Detail
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Detail, e.Status)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var rerr *RequestError
	return errors.As(err, &rerr) && rerr.Status == http.StatusNotFound
}

type Option func(c *Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

var _ roster.Redeemer = (*Client)(nil) // interface compliance check

// New returns a Client of the API served at baseURL (e.g. http://localhost:8000/api).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// send performs req; any status other than 2xx becomes a *RequestError.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Detail: requestFailedText, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	rerr := &RequestError{Status: resp.StatusCode}
	var body struct {
		Detail string `json:"detail"`
	}
	if data, rErr := io.ReadAll(resp.Body); rErr == nil && json.Unmarshal(data, &body) == nil {
		rerr.Detail = body.Detail
	}
	if rerr.Detail == "" {
		rerr.Detail = http.StatusText(resp.StatusCode)
	}
	return nil, rerr
}

// doJSON sends in as JSON (when not nil) and decodes the response into out (when not nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

func pathID(id string) string {
	return "/" + url.PathEscape(id)
}

// Auth

func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	in := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/users/login", in, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// Classrooms

func (c *Client) Classrooms(ctx context.Context) ([]classroom.Classroom, error) {
	var classrooms []classroom.Classroom
	err := c.doJSON(ctx, http.MethodGet, "/classrooms", nil, &classrooms)
	return classrooms, err
}

func (c *Client) CreateClassroom(ctx context.Context, name string) (classroom.Classroom, error) {
	var created classroom.Classroom
	err := c.doJSON(ctx, http.MethodPost, "/classrooms", classroom.NewClassroom{Name: name}, &created)
	return created, err
}

func (c *Client) DeleteClassroom(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/classrooms"+pathID(id), nil, nil)
}

// Students

func (c *Client) Students(ctx context.Context, classroomID string) ([]student.Student, error) {
	var students []student.Student
	err := c.doJSON(ctx, http.MethodGet, "/students"+pathID(classroomID), nil, &students)
	return students, err
}

func (c *Client) StudentDetail(ctx context.Context, id string) (student.Detail, error) {
	var detail student.Detail
	err := c.doJSON(ctx, http.MethodGet, "/students/detail"+pathID(id), nil, &detail)
	return detail, err
}

// CreateStudent refuses a blank name without calling the backend.
func (c *Client) CreateStudent(ctx context.Context, classroomID string, ns student.NewStudent) (student.Student, error) {
	if err := student.CheckName(ns.Name); err != nil {
		return student.Student{}, err
	}
	var created student.Student
	err := c.doJSON(ctx, http.MethodPost, "/students"+pathID(classroomID), ns, &created)
	return created, err
}

func (c *Client) UpdateStudent(ctx context.Context, id string, us student.UpdateStudent) (student.Student, error) {
	if us.Name != nil {
		if err := student.CheckName(*us.Name); err != nil {
			return student.Student{}, err
		}
	}
	var updated student.Student
	err := c.doJSON(ctx, http.MethodPut, "/students"+pathID(id), us, &updated)
	return updated, err
}

func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/students"+pathID(id), nil, nil)
}

// ChangePoints validates pc locally first; an invalid change never reaches the backend.
func (c *Client) ChangePoints(ctx context.Context, id string, pc student.PointChange) (student.ChangeResult, error) {
	if err := pc.Validate(); err != nil {
		return student.ChangeResult{}, err
	}
	var res student.ChangeResult
	err := c.doJSON(ctx, http.MethodPost, "/students"+pathID(id)+"/points", pc, &res)
	return res, err
}

// Rankings returns the leaderboard; limit <= 0 lets the backend pick its default.
func (c *Client) Rankings(ctx context.Context, classroomID string, limit int) ([]student.RankingEntry, error) {
	path := "/students/rankings" + pathID(classroomID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var entries []student.RankingEntry
	err := c.doJSON(ctx, http.MethodGet, path, nil, &entries)
	return entries, err
}

// Rewards

func (c *Client) Rewards(ctx context.Context, classroomID string) ([]reward.Reward, error) {
	var rewards []reward.Reward
	err := c.doJSON(ctx, http.MethodGet, "/rewards"+pathID(classroomID), nil, &rewards)
	return rewards, err
}

func (c *Client) CreateReward(ctx context.Context, classroomID string, nr reward.NewReward) (reward.Reward, error) {
	var created reward.Reward
	err := c.doJSON(ctx, http.MethodPost, "/rewards"+pathID(classroomID), nr, &created)
	return created, err
}

func (c *Client) DeleteReward(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/rewards"+pathID(id), nil, nil)
}

func (c *Client) Redeem(ctx context.Context, rr reward.RedeemRequest) (reward.RedeemResult, error) {
	var res reward.RedeemResult
	err := c.doJSON(ctx, http.MethodPost, "/rewards/redeem", rr, &res)
	return res, err
}

// Spreadsheets

// Import uploads a roster file. When some rows were rejected the result comes with a core.PartialImportError.
func (c *Client) Import(ctx context.Context, classroomID, filename string, r io.Reader) (spreadsheet.ImportResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return spreadsheet.ImportResult{}, errors.Wrap(err, "creating form file")
	}
	if _, err = io.Copy(fw, r); err != nil {
		return spreadsheet.ImportResult{}, errors.Wrap(err, "reading file")
	}
	if err = w.Close(); err != nil {
		return spreadsheet.ImportResult{}, errors.Wrap(err, "closing form")
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/excel/import"+pathID(classroomID), &body, w.FormDataContentType())
	if err != nil {
		return spreadsheet.ImportResult{}, err
	}
	resp, err := c.send(req)
	if err != nil {
		return spreadsheet.ImportResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var res spreadsheet.ImportResult
	if err = json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return spreadsheet.ImportResult{}, errors.Wrap(err, "decoding response")
	}
	if len(res.Errors) > 0 {
		return res, core.PartialImportError{Imported: res.Imported, Errors: res.Errors}
	}
	return res, nil
}

// Export writes the classroom workbook to w and returns the file name the backend suggested.
func (c *Client) Export(ctx context.Context, classroomID string, w io.Writer) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/excel/export"+pathID(classroomID), nil, "")
	if err != nil {
		return "", err
	}
	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err = io.Copy(w, resp.Body); err != nil {
		return "", errors.Wrap(err, "downloading workbook")
	}

	filename := "export.xlsx"
	if _, params, pErr := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); pErr == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return filename, nil
}
