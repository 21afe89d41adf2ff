package cache

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// ETagMiddleware tags successful GET responses with a hash of their body and
// answers 304 when the client already holds that version.
func ETagMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		original := c.Writer
		writer := &responseWriter{
			ResponseWriter: original,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		c.Writer = original
		if original.Status() != http.StatusOK {
			if writer.body.Len() > 0 {
				original.Write(writer.body.Bytes())
			}
			return
		}

		tag := ETag(writer.body.Bytes())
		original.Header().Set("ETag", tag)
		if c.GetHeader("If-None-Match") == tag {
			original.WriteHeader(http.StatusNotModified)
			original.WriteHeaderNow()
			return
		}
		original.Write(writer.body.Bytes())
	}
}
