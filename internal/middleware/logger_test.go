package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestShouldLog(t *testing.T) {
	assert.True(t, shouldLog("info", http.StatusOK))
	assert.True(t, shouldLog("", http.StatusOK))
	assert.False(t, shouldLog("warn", http.StatusOK))
	assert.True(t, shouldLog("warn", http.StatusNotFound))
	assert.False(t, shouldLog("error", http.StatusNotFound))
	assert.True(t, shouldLog("ERROR", http.StatusBadGateway))
}

func TestParseAndRedactBody(t *testing.T) {
	body := parseAndRedactBody([]byte(`{"invoiceNumber":"INV-1","access_token":"abc","nested":{"password":"x"}}`))

	m, ok := body.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "INV-1", m["invoiceNumber"])
	assert.Equal(t, "[REDACTED]", m["access_token"])
	assert.Equal(t, "[REDACTED]", m["nested"].(map[string]interface{})["password"])
}

func TestRedactHeaders(t *testing.T) {
	headers := redactHeaders(http.Header{
		"Authorization": {"Bearer secret"},
		"Content-Type":  {"application/json"},
	})

	assert.Equal(t, "[REDACTED]", headers["Authorization"])
	assert.Equal(t, "application/json", headers["Content-Type"])
}

func TestLoggerKeepsBodies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestResponseLogger(LoggerConfig{Format: "json", Level: "error"}))

	var seen []byte
	router.POST("/json", func(c *gin.Context) {
		seen, _ = c.GetRawData()
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/pdf", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/pdf", []byte("%PDF-1.7"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/json", bytes.NewBufferString(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, `{"a":1}`, string(seen), "handler must still read the request body")
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/pdf", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "%PDF-1.7", w.Body.String())
}
