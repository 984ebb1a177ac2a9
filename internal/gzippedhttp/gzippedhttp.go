// Package gzippedhttp compresses rendered pages and JSON responses for
// clients that accept gzip.
package gzippedhttp

import (
	"compress/gzip"
	"net/http"
	"strings"
	"sync"
)

var compressibleTypes = []string{"text/html", "application/json"}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// CompressedHTTPResponseWriter decides on the first WriteHeader or Write
// whether to compress: only successful responses of a compressible type are.
// Redirects and empty bodies pass through untouched.
type CompressedHTTPResponseWriter struct {
	http.ResponseWriter
	zw          *gzip.Writer
	wroteHeader bool
}

func NewCompressedHTTPResponseWriter(w http.ResponseWriter) *CompressedHTTPResponseWriter {
	return &CompressedHTTPResponseWriter{ResponseWriter: w}
}

func (c *CompressedHTTPResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true

	header := c.Header()
	if statusCode < 300 && statusCode != http.StatusNoContent &&
		header.Get("Content-Encoding") == "" && isCompressible(header.Get("Content-Type")) {
		header.Set("Content-Encoding", "gzip")
		header.Add("Vary", "Accept-Encoding")
		header.Del("Content-Length")

		c.zw = gzipWriterPool.Get().(*gzip.Writer)
		c.zw.Reset(c.ResponseWriter)
	}

	c.ResponseWriter.WriteHeader(statusCode)
}

func (c *CompressedHTTPResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		if c.Header().Get("Content-Type") == "" {
			c.Header().Set("Content-Type", http.DetectContentType(p))
		}
		c.WriteHeader(http.StatusOK)
	}
	if c.zw == nil {
		return c.ResponseWriter.Write(p)
	}

	return c.zw.Write(p)
}

// Close flushes the gzip stream, if one was started, and returns the writer to the pool.
func (c *CompressedHTTPResponseWriter) Close() error {
	if c.zw == nil {
		return nil
	}
	err := c.zw.Close()
	gzipWriterPool.Put(c.zw)
	c.zw = nil

	return err
}

func isCompressible(contentType string) bool {
	for _, prefix := range compressibleTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}

	return false
}

// GzipResponse compresses the response when the request's Accept-Encoding allows gzip.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		compressed := NewCompressedHTTPResponseWriter(response)
		defer compressed.Close()

		h.ServeHTTP(compressed, request)
	}

	return http.HandlerFunc(middleware)
}
