package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCrawlResult_JSONFieldNames(t *testing.T) {
	r := CrawlResult{
		URL:         "https://x.hse.ie/old",
		HTTPCode:    301,
		RedirectsTo: "https://x.hse.ie/new",
		Referer:     "https://x.hse.ie/old",
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "https://x.hse.ie/old", raw["url"])
	assert.EqualValues(t, 301, raw["httpCode"])
	assert.Equal(t, "https://x.hse.ie/new", raw["redirectsTo"])
	assert.Equal(t, "https://x.hse.ie/old", raw["referer"])
	assert.NotContains(t, raw, "discoveredFrom")
}

func TestCrawlResult_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(CrawlResult{URL: "https://x.hse.ie/", HTTPCode: 200})
	require.NoError(t, err)

	raw := string(data)
	assert.NotContains(t, raw, "redirectsTo")
	assert.NotContains(t, raw, "referer")
}

func TestCrawlResult_YAMLKeys(t *testing.T) {
	data, err := yaml.Marshal(CrawlResult{URL: "https://x.hse.ie/a", HTTPCode: 404, Referer: "https://x.hse.ie/"})
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "http_code: 404")
	assert.Contains(t, out, "referer: https://x.hse.ie/")
	assert.NotContains(t, out, "redirects_to")
}

func TestCrawlResult_Predicates(t *testing.T) {
	assert.True(t, CrawlResult{HTTPCode: 302, RedirectsTo: "https://x.hse.ie/"}.IsRedirect())
	assert.False(t, CrawlResult{HTTPCode: 304}.IsRedirect())
	assert.True(t, CrawlResult{HTTPCode: 404}.IsBroken())
	assert.True(t, CrawlResult{HTTPCode: 503}.IsBroken())
	assert.False(t, CrawlResult{HTTPCode: 200}.IsBroken())
}

func TestStatusClassOf(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{101, "1xx"},
		{200, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{0, "other"},
		{999, "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusClassOf(tt.code), "StatusClassOf(%d)", tt.code)
	}
}
