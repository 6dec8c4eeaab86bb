package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/crnow/pkg/shared/config"
)

func TestApplyHTTPClientConfig(t *testing.T) {
	verify := false
	got := applyHTTPClientConfig(&config.HTTPClient{
		RetryCount:      7,
		Timeout:         15 * time.Second,
		TLSClientConfig: config.TLSClientConfig{Verify: &verify},
		Proxy:           config.Proxy{Host: "http://proxy.local", Port: 3128},
	})

	assert.Equal(t, 7, got.RetryCount)
	assert.Equal(t, 15*time.Second, got.Timeout)
	assert.Equal(t, config.DefaultRestyConfig().RetryWaitTime, got.RetryWaitTime)
	assert.True(t, got.TLSClientConfig.InsecureSkipVerify)
	assert.Equal(t, "http://proxy.local:3128", got.Proxy)
}

func TestApplyHTTPClientConfigDefaults(t *testing.T) {
	got := applyHTTPClientConfig(&config.HTTPClient{})

	assert.Equal(t, config.DefaultRestyConfig().RetryCount, got.RetryCount)
	assert.False(t, got.TLSClientConfig.InsecureSkipVerify)
	assert.Empty(t, got.Proxy)
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	c, err := New(nil, &config.Config{})
	require.NoError(t, err)
	assert.NotNil(t, c.RestyClient)
}
