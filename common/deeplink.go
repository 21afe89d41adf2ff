package common

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"unionhall/nav"
)

// DeepLinkMiddleware turns query-string links such as /?tab=free&post=42
// (older share links, some mail clients strip fragments) into the fragment
// form /#tab=free&post=42 the client reads.
func DeepLinkMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.Request.URL.Path != "/" {
			c.Next()
			return
		}

		state, ok := nav.ParseQuery(c.Request.URL.Query())
		if !ok {
			c.Next()
			return
		}

		c.Redirect(http.StatusFound, nav.Link(state))
		c.Abort()
	}
}
