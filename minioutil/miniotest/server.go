// Package miniotest provides an in-memory S3 server for testing code that
// uses minioutil. It understands just enough of the S3 API for
// minioutil.Client: bucket HEAD, object HEAD / GET / PUT / DELETE and
// ListObjectsV2. Requests are not authenticated.
package miniotest

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tsitoo/common/minioutil"
)

type object struct {
	data        []byte
	contentType string
	modTime     time.Time
}

type Server struct {
	*httptest.Server
	Bucket string

	mu      sync.Mutex
	objects map[string]*object
}

// NewServer starts a server with one empty bucket.
// Call Close when done.
func NewServer(bucket string) *Server {
	s := &Server{
		Bucket:  bucket,
		objects: map[string]*object{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Config returns minioutil config for connecting to s
func (s *Server) Config() *minioutil.Config {
	return &minioutil.Config{
		Access:   "test-access",
		Secret:   "test-secret",
		Bucket:   s.Bucket,
		Endpoint: strings.TrimPrefix(s.URL, "http://"),
		Region:   "us-east-1",
		Insecure: true,
	}
}

// Env returns .env content for connecting to s
func (s *Server) Env() string {
	c := s.Config()
	return fmt.Sprintf("%s=%s\n%s=%s\n%s=%s\n%s=%s\n%s=%s\n%s=true\n",
		minioutil.EnvAccess, c.Access,
		minioutil.EnvSecret, c.Secret,
		minioutil.EnvBucket, c.Bucket,
		minioutil.EnvEndpoint, c.Endpoint,
		minioutil.EnvRegion, c.Region,
		minioutil.EnvInsecure)
}

// Put stores an object directly, bypassing the S3 API
func (s *Server) Put(key string, d []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = &object{
		data:        d,
		contentType: "application/octet-stream",
		modTime:     time.Now().UTC(),
	}
}

// ContentType returns content type of an object and false if it doesn't exist
func (s *Server) ContentType(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.objects[key]
	if o == nil {
		return "", false
	}
	return o.contentType, true
}

// Keys returns sorted names of all objects
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysLocked()
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	fmt.Fprintf(w, "<Error><Code>%s</Code><Message>%s</Message><Resource>%s</Resource></Error>",
		code, code, r.URL.Path)
}

func etag(d []byte) string {
	sum := md5.Sum(d)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != s.Bucket {
		writeError(w, r, http.StatusNotFound, "NoSuchBucket")
		return
	}
	if key == "" {
		s.handleBucket(w, r)
		return
	}
	s.handleObject(w, r, key)
}

func (s *Server) handleBucket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && q.Has("location"):
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, `<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
	case r.Method == http.MethodGet:
		s.list(w, q.Get("prefix"))
	default:
		writeError(w, r, http.StatusNotImplemented, "NotImplemented")
	}
}

type listObject struct {
	Key          string
	LastModified string
	ETag         string
	Size         int64
	StorageClass string
}

type listBucketResult struct {
	XMLName     xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListBucketResult"`
	Name        string
	Prefix      string
	KeyCount    int
	MaxKeys     int
	IsTruncated bool
	Contents    []listObject
}

func (s *Server) list(w http.ResponseWriter, prefix string) {
	res := listBucketResult{
		Name:    s.Bucket,
		Prefix:  prefix,
		MaxKeys: 1000,
	}
	s.mu.Lock()
	for _, k := range s.keysLocked() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		o := s.objects[k]
		res.Contents = append(res.Contents, listObject{
			Key:          k,
			LastModified: o.modTime.Format("2006-01-02T15:04:05.000Z"),
			ETag:         etag(o.data),
			Size:         int64(len(o.data)),
			StorageClass: "STANDARD",
		})
	}
	s.mu.Unlock()
	res.KeyCount = len(res.Contents)

	d, err := xml.Marshal(res)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	io.WriteString(w, xml.Header)
	w.Write(d)
}

func (s *Server) keysLocked() []string {
	var res []string
	for k := range s.objects {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request, key string) {
	switch r.Method {
	case http.MethodPut:
		d, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.objects[key] = &object{
			data:        d,
			contentType: r.Header.Get("Content-Type"),
			modTime:     time.Now().UTC(),
		}
		s.mu.Unlock()
		w.Header().Set("ETag", etag(d))
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodDelete:
		s.mu.Lock()
		delete(s.objects, key)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodHead, http.MethodGet:
	default:
		writeError(w, r, http.StatusNotImplemented, "NotImplemented")
		return
	}

	s.mu.Lock()
	o := s.objects[key]
	s.mu.Unlock()
	if o == nil {
		writeError(w, r, http.StatusNotFound, "NoSuchKey")
		return
	}
	h := w.Header()
	h.Set("Content-Type", o.contentType)
	h.Set("Content-Length", strconv.Itoa(len(o.data)))
	h.Set("Last-Modified", o.modTime.Format(http.TimeFormat))
	h.Set("ETag", etag(o.data))
	h.Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(o.data)
	}
}
