package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// GzipRequestMiddleware unwraps request bodies sent with Content-Encoding gzip. A body that
// does not start with a gzip header is rejected with 400 before the handler runs.
func GzipRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !hasGzipEncoding(req.Header.Values(echo.HeaderContentEncoding)) {
				return next(c)
			}
			if err := unwrapGzip(req); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
			}
			return next(c)
		}
	}
}

func hasGzipEncoding(values []string) bool {
	for _, v := range values {
		for _, enc := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
				return true
			}
		}
	}
	return false
}

func unwrapGzip(req *http.Request) error {
	zr, err := gzip.NewReader(req.Body)
	if err != nil {
		return errors.Join(err, req.Body.Close())
	}
	req.Body = gzipReadCloser{Reader: zr, underlying: req.Body}
	req.ContentLength = -1
	req.Header.Del(echo.HeaderContentEncoding)
	req.Header.Del(echo.HeaderContentLength)
	return nil
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g gzipReadCloser) Close() error {
	return errors.Join(g.Reader.Close(), g.underlying.Close())
}
