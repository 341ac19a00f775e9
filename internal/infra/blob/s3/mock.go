package s3

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // S3 ETags are MD5 digests
	"encoding/hex"
	"encoding/xml"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	mockBucket   = "campus-media"
	mockEndpoint = "https://s3.campus.test"
	metaHeader   = "X-Amz-Meta-"
)

// NewMockForTests returns a Store backed by an in-process bucket. The fake
// answers the object calls the store makes (head, get, put, delete and
// list-type=2 listings) and keeps content type, user metadata and an MD5
// ETag per object.
func NewMockForTests() *Store {
	bucket := &fakeBucket{objects: make(map[string]fakeObject), now: time.Now}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-west-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("campus-test", "campus-secret", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: bucket}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(mockEndpoint)
	})
	return &Store{client: client, bucket: mockBucket, presign: s3.NewPresignClient(client)}
}

type fakeObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
	etag        string
	modified    time.Time
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	now     func() time.Time
}

type listResult struct {
	XMLName     xml.Name      `xml:"ListBucketResult"`
	Name        string        `xml:"Name"`
	Prefix      string        `xml:"Prefix"`
	KeyCount    int           `xml:"KeyCount"`
	IsTruncated bool          `xml:"IsTruncated"`
	Contents    []listContent `xml:"Contents"`
}

type listContent struct {
	Key          string `xml:"Key"`
	Size         int    `xml:"Size"`
	ETag         string `xml:"ETag"`
	LastModified string `xml:"LastModified"`
}

func (b *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// path-style: /<bucket>/<key>
	_, key, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		return b.list(req.URL.Query().Get("prefix"))
	case req.Method == http.MethodPut:
		return b.put(key, req)
	case req.Method == http.MethodHead, req.Method == http.MethodGet:
		obj, ok := b.objects[key]
		if !ok {
			return noSuchKey(req.Method, key), nil
		}
		body := obj.body
		if req.Method == http.MethodHead {
			body = nil
		}
		return respond(http.StatusOK, objectHeaders(obj), body), nil
	case req.Method == http.MethodDelete:
		delete(b.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

func (b *fakeBucket) put(key string, req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if decoded, ok := decodeAWSChunked(body); ok {
		body = decoded
	}
	sum := md5.Sum(body) //nolint:gosec
	obj := fakeObject{
		body:        body,
		contentType: req.Header.Get("Content-Type"),
		etag:        `"` + hex.EncodeToString(sum[:]) + `"`,
		modified:    b.now().UTC().Truncate(time.Second),
	}
	for name, values := range req.Header {
		if len(values) == 0 || !strings.HasPrefix(http.CanonicalHeaderKey(name), metaHeader) {
			continue
		}
		if obj.metadata == nil {
			obj.metadata = make(map[string]string)
		}
		obj.metadata[strings.ToLower(strings.TrimPrefix(http.CanonicalHeaderKey(name), metaHeader))] = values[0]
	}
	b.objects[key] = obj
	return respond(http.StatusOK, http.Header{"ETag": {obj.etag}}, nil), nil
}

func (b *fakeBucket) list(prefix string) (*http.Response, error) {
	res := listResult{Name: mockBucket, Prefix: prefix}
	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		res.Contents = append(res.Contents, listContent{
			Key:          key,
			Size:         len(obj.body),
			ETag:         obj.etag,
			LastModified: obj.modified.Format("2006-01-02T15:04:05Z"),
		})
	}
	sort.Slice(res.Contents, func(i, j int) bool { return res.Contents[i].Key < res.Contents[j].Key })
	res.KeyCount = len(res.Contents)
	out, err := xml.Marshal(res)
	if err != nil {
		return nil, err
	}
	return respond(http.StatusOK, http.Header{"Content-Type": {"application/xml"}}, append([]byte(xml.Header), out...)), nil
}

func objectHeaders(obj fakeObject) http.Header {
	h := http.Header{
		"Content-Length": {strconv.Itoa(len(obj.body))},
		"ETag":           {obj.etag},
		"Last-Modified":  {obj.modified.Format(http.TimeFormat)},
	}
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	}
	for k, v := range obj.metadata {
		h.Set(metaHeader+k, v)
	}
	return h
}

// noSuchKey mirrors S3: HEAD carries no body, GET carries an XML error.
func noSuchKey(method, key string) *http.Response {
	if method == http.MethodHead {
		return respond(http.StatusNotFound, nil, nil)
	}
	body := "<?xml version=\"1.0\" encoding=\"UTF-8\"?><Error><Code>NoSuchKey</Code><Message>no object " + key + " in " + mockBucket + "</Message></Error>"
	return respond(http.StatusNotFound, http.Header{"Content-Type": {"application/xml"}}, []byte(body))
}

func respond(status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(bytes.NewReader(body)), ContentLength: int64(len(body))}
}

// decodeAWSChunked unwraps an aws-chunked upload body: a sequence of
// "<hex size>[;ext]\r\n<data>\r\n" frames ending in a zero-size frame.
// Anything that does not parse is treated as a plain body.
func decodeAWSChunked(b []byte) ([]byte, bool) {
	var out []byte
	rest := b
	for {
		line, after, ok := bytes.Cut(rest, []byte("\r\n"))
		if !ok {
			return nil, false
		}
		sizeField, _, _ := bytes.Cut(line, []byte(";"))
		size, err := strconv.ParseUint(string(sizeField), 16, 32)
		if err != nil {
			return nil, false
		}
		if size == 0 {
			return out, true
		}
		if uint64(len(after)) < size+2 || !bytes.HasPrefix(after[size:], []byte("\r\n")) {
			return nil, false
		}
		out = append(out, after[:size]...)
		rest = after[size+2:]
	}
}
