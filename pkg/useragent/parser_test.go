package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewParser(t *testing.T) {
	t.Run("falls back to embedded definitions without file", func(t *testing.T) {
		p, err := NewParser("", zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, p)
	})

	t.Run("falls back when file is missing", func(t *testing.T) {
		p, err := NewParser("does/not/exist.yaml", zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, p)
	})
}

func TestParser_Parse(t *testing.T) {
	p, err := NewParser("", zap.NewNop())
	require.NoError(t, err)

	t.Run("desktop browser", func(t *testing.T) {
		info := p.Parse("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Equal(t, "desktop", info.DeviceType)
		assert.Equal(t, "Chrome", info.Browser)
		assert.Equal(t, "Windows", info.OS)
	})

	t.Run("iphone", func(t *testing.T) {
		info := p.Parse("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.Equal(t, "mobile", info.DeviceType)
	})

	t.Run("android tablet without Mobile token", func(t *testing.T) {
		info := p.Parse("Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Equal(t, "tablet", info.DeviceType)
	})

	t.Run("crawler", func(t *testing.T) {
		info := p.Parse("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
		assert.Equal(t, "bot", info.DeviceType)
	})

	t.Run("empty input", func(t *testing.T) {
		info := p.Parse("")
		assert.Equal(t, "unknown", info.DeviceType)
		assert.Equal(t, "unknown", info.Browser)
		assert.Equal(t, "unknown", info.OS)
	})

	t.Run("nil receiver is safe", func(t *testing.T) {
		var nilParser *Parser
		info := nilParser.Parse("Mozilla/5.0")
		assert.Equal(t, "unknown", info.DeviceType)
	})
}
