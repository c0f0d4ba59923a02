package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hirelane/portal/internal/infrastructure/gateway"
)

const (
	pathResume       = "/candidates/me/resume"
	pathApplications = "/candidates/me/applications"
	pathCandidates   = "/hr/candidates"
	pathUsers        = "/admin/users"
)

// CandidateClient implements ports.CandidateAPI.
type CandidateClient struct {
	c    *gateway.Client
	base string
}

func NewCandidateClient(c *gateway.Client, base string) *CandidateClient {
	return &CandidateClient{c: c, base: base}
}

// UploadResume sends the file as multipart field "file". The gateway sets
// the boundary-bearing Content-Type itself.
func (s *CandidateClient) UploadResume(ctx context.Context, filename string, content io.Reader) (json.RawMessage, error) {
	form := gateway.NewMultipart().AddFile("file", filename, content)
	return raw(gateway.RequestMultipart[json.RawMessage](ctx, s.c, endpoint(s.base, pathResume), form))
}

func (s *CandidateClient) ListApplications(ctx context.Context) (json.RawMessage, error) {
	return raw(gateway.Request[json.RawMessage](ctx, s.c, http.MethodGet, endpoint(s.base, pathApplications), nil))
}

// HRClient implements ports.HRAPI.
type HRClient struct {
	c    *gateway.Client
	base string
}

func NewHRClient(c *gateway.Client, base string) *HRClient {
	return &HRClient{c: c, base: base}
}

func (s *HRClient) ListCandidates(ctx context.Context) (json.RawMessage, error) {
	return raw(gateway.Request[json.RawMessage](ctx, s.c, http.MethodGet, endpoint(s.base, pathCandidates), nil))
}

// AdminClient implements ports.AdminAPI.
type AdminClient struct {
	c    *gateway.Client
	base string
}

func NewAdminClient(c *gateway.Client, base string) *AdminClient {
	return &AdminClient{c: c, base: base}
}

func (s *AdminClient) ListUsers(ctx context.Context) (json.RawMessage, error) {
	return raw(gateway.Request[json.RawMessage](ctx, s.c, http.MethodGet, endpoint(s.base, pathUsers), nil))
}

func raw(out *json.RawMessage, err error) (json.RawMessage, error) {
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}
