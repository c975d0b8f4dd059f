package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, header string) (string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var fromCtx string
	r.GET("/", func(c *gin.Context) {
		fromCtx = FromContext(c.Request.Context())
		require.Equal(t, Value(c), fromCtx)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(HeaderKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header().Get(HeaderKey), fromCtx
}

func TestMiddlewareReusesInboundID(t *testing.T) {
	header, ctxID := serve(t, "edge-7f3a:42")
	assert.Equal(t, "edge-7f3a:42", header)
	assert.Equal(t, header, ctxID)
}

func TestMiddlewareReplacesMissingOrHostileID(t *testing.T) {
	for _, inbound := range []string{"", "two words", "<script>", strings.Repeat("a", 200)} {
		header, ctxID := serve(t, inbound)
		_, err := uuid.Parse(header)
		assert.NoError(t, err, inbound)
		assert.Equal(t, header, ctxID)
	}
}

func TestFromContextWithoutID(t *testing.T) {
	assert.Empty(t, FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
