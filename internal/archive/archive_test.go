package archive

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 records PUT requests made against a path-style endpoint.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	status  int
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		return &http.Response{StatusCode: f.status, Body: io.NopCloser(strings.NewReader("<Error><Code>AccessDenied</Code></Error>")), Header: http.Header{"Content-Type": {"application/xml"}}}, nil
	}
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	body, _ := io.ReadAll(req.Body)
	key := strings.TrimPrefix(req.URL.Path, "/")
	f.objects[key] = body
	f.types[key] = req.Header.Get("Content-Type")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
}

func newTestArchive(t *testing.T, rt *fakeS3) *S3Archive {
	t.Helper()

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return &S3Archive{client: client, bucket: "quotes-bucket"}
}

func TestS3ArchivePut(t *testing.T) {
	rt := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	a := newTestArchive(t, rt)

	key := Key("TE-20260307-ABC123", "s1", "Hydropack_Quote_Dana_2026-03-07.pdf")
	if err := a.Put(context.Background(), key, []byte("%PDF-1.3 body")); err != nil {
		t.Fatalf("put: %v", err)
	}

	stored := "quotes-bucket/quotes/TE-20260307-ABC123/Hydropack_Quote_Dana_2026-03-07.pdf"
	got, ok := rt.objects[stored]
	if !ok {
		t.Fatalf("object not stored, have %v", rt.objects)
	}
	if string(got) != "%PDF-1.3 body" {
		t.Fatalf("body = %q", got)
	}
	if rt.types[stored] != "application/pdf" {
		t.Fatalf("content type = %q", rt.types[stored])
	}
}

func TestS3ArchivePutError(t *testing.T) {
	rt := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}, status: http.StatusForbidden}
	a := newTestArchive(t, rt)

	err := a.Put(context.Background(), "quotes/x/y.pdf", []byte("data"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "archive document quotes/x/y.pdf") {
		t.Fatalf("error not wrapped: %v", err)
	}
}

func TestKey(t *testing.T) {
	if got := Key("", "abc", "q.pdf"); got != "quotes/session-abc/q.pdf" {
		t.Fatalf("Key = %q", got)
	}
	if got := Key(" AQ-20260101-ZZZZZZ ", "abc", "q.pdf"); got != "quotes/AQ-20260101-ZZZZZZ/q.pdf" {
		t.Fatalf("Key = %q", got)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

func TestNopArchive(t *testing.T) {
	var a Archiver = Nop{}
	if err := a.Put(context.Background(), "k", nil); err != nil {
		t.Fatalf("nop put: %v", err)
	}
}
