package mcp

import (
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"adcp-sales-agent/internal/auth"
	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/internal/services"
)

func TestDateArg(t *testing.T) {
	got, err := dateArg(map[string]interface{}{"start_date": "2026-04-01"}, "start_date")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = dateArg(map[string]interface{}{"start_date": "2026-04-01T09:30:00Z"}, "start_date")
	assert.NoError(t, err)
	assert.Equal(t, 9, got.Hour())

	_, err = dateArg(map[string]interface{}{}, "start_date")
	assert.Error(t, err)

	_, err = dateArg(map[string]interface{}{"start_date": "April 1st"}, "start_date")
	assert.Error(t, err)
}

func TestStringSliceArg(t *testing.T) {
	args := map[string]interface{}{
		"product_ids": []interface{}{"prod-1", "prod-2", 3},
	}
	assert.Equal(t, []string{"prod-1", "prod-2"}, stringSliceArg(args, "product_ids"))
	assert.Nil(t, stringSliceArg(args, "missing"))
	assert.Nil(t, stringSliceArg(map[string]interface{}{"product_ids": "prod-1"}, "product_ids"))
}

func TestIntArg(t *testing.T) {
	args := map[string]interface{}{"limit": float64(25), "offset": "ten"}
	if v := intArg(args, "limit"); assert.NotNil(t, v) {
		assert.Equal(t, 25, *v)
	}
	assert.Nil(t, intArg(args, "offset"))
	assert.Nil(t, intArg(args, "missing"))
}

func TestToolError_MessageMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{repository.ErrNotFound, "Not found"},
		{auth.ErrInvalidToken, auth.ErrInvalidToken.Error()},
		{auth.ErrNoTenant, auth.ErrNoTenant.Error()},
	}
	for _, tc := range cases {
		result := toolError(tc.err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), tc.want)
	}

	wrapped := toolError(errors.New("pq: connection refused"))
	assert.Contains(t, resultText(t, wrapped), "Internal error")

	invalid := toolError(services.ErrInvalidArgument)
	assert.Contains(t, resultText(t, invalid), "invalid argument")
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("tool result content is %T, not text", result.Content[0])
	}
	return text.Text
}
