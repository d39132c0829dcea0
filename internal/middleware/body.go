package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/eaglebank/ge-api/internal/sanitize"
	"github.com/gin-gonic/gin"
)

const sanitizedQueryKey = "sanitizedQuery"

// SanitizeMiddleware caps the request body at limit bytes, strips markup from
// every string in a JSON body and in the route parameters, and stores a
// sanitized copy of the query string for handlers that want one. The raw
// query is left as received.
func SanitizeMiddleware(s *sanitize.Sanitizer, limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		for i := range c.Params {
			c.Params[i].Value = s.String(c.Params[i].Value)
		}

		query := c.Request.URL.Query()
		clean := make(url.Values, len(query))
		for k, vs := range query {
			clean[k] = s.Value(vs).([]string)
		}
		c.Set(sanitizedQueryKey, clean)

		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				RespondWithError(c, http.StatusRequestEntityTooLarge, "payload_too_large")
				return
			}
			RespondWithError(c, http.StatusBadRequest, "invalid_body")
			return
		}

		if len(bytes.TrimSpace(raw)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(nil))
			c.Request.ContentLength = 0
			c.Next()
			return
		}

		body, err := decodeJSON(raw)
		if err != nil {
			RespondWithError(c, http.StatusBadRequest, "invalid_json")
			return
		}

		out, err := json.Marshal(s.Value(body))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(out))
		c.Request.ContentLength = int64(len(out))
		c.Next()
	}
}

// SanitizedQuery returns the query string with markup removed.
func SanitizedQuery(c *gin.Context) url.Values {
	if v, ok := c.Get(sanitizedQueryKey); ok {
		if q, ok := v.(url.Values); ok {
			return q
		}
	}
	return url.Values{}
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}
