package usage

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("not json"))
	assert.Empty(t, Parse("null"))
	assert.Empty(t, Parse(`{"1.1.1.1":"three"}`))
	assert.Equal(t, Record{"1.1.1.1": 3, "": 1}, Parse(`{"1.1.1.1":3,"":1}`))
}

func newContext(t *testing.T, raw string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
	if raw != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: url.QueryEscape(raw)})
	}
	c.Request = req

	return c, w
}

func responseRecord(t *testing.T, w *httptest.ResponseRecorder) (Record, *http.Cookie) {
	t.Helper()

	for _, ck := range w.Result().Cookies() {
		if ck.Name == CookieName {
			raw, err := url.QueryUnescape(ck.Value)
			require.NoError(t, err)
			return Parse(raw), ck
		}
	}

	t.Fatalf("no %s cookie set", CookieName)
	return nil, nil
}

func TestCheck(t *testing.T) {
	u := NewCounter()

	c, _ := newContext(t, "")
	assert.Equal(t, 0, u.Check(c, "1.1.1.1"))

	c, _ = newContext(t, "{broken")
	assert.Equal(t, 0, u.Check(c, "1.1.1.1"))

	c, _ = newContext(t, `{"1.1.1.1":4,"2.2.2.2":9}`)
	assert.Equal(t, 4, u.Check(c, "1.1.1.1"))
	assert.Equal(t, 0, u.Check(c, "3.3.3.3"))
}

func TestExceeded(t *testing.T) {
	u := NewCounter()

	assert.False(t, u.Exceeded(MaxRequests-1))
	assert.True(t, u.Exceeded(MaxRequests))
	assert.True(t, u.Exceeded(MaxRequests+10))
}

func TestIncrement(t *testing.T) {
	u := NewCounter()
	c, w := newContext(t, `{"1.1.1.1":2,"2.2.2.2":4}`)

	u.Increment(c, "1.1.1.1")

	r, ck := responseRecord(t, w)
	assert.Equal(t, Record{"1.1.1.1": 3, "2.2.2.2": 4}, r)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, 2592000, ck.MaxAge)
}

func TestIncrementNewClient(t *testing.T) {
	u := NewCounter()
	c, w := newContext(t, "garbage")

	u.Increment(c, "")

	r, _ := responseRecord(t, w)
	assert.Equal(t, Record{"": 1}, r)
}
