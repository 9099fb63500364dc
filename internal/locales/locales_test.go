package locales

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	b := Default()
	tests := map[string]string{
		"en":      "en",
		"zh":      "zh",
		"zh-TW":   "zh",
		"zh-Hant": "zh",
		"ja-JP":   "ja",
		"fr":      "en",
		"":        "en",
		"???":     "en",
	}
	for in, want := range tests {
		assert.Equal(t, want, b.Match(in), in)
	}
}

func TestTextFallback(t *testing.T) {
	b := Default()
	zh := b.For("zh")
	assert.Equal(t, "平均下載速度:", zh.T("avg_download_speed"))
	assert.Equal(t, "測試 3 個機房...", zh.T("testing_multiple", 3))
	assert.Equal(t, "no_such_key", zh.T("no_such_key"))
	assert.Equal(t, "Testing 2 servers...", b.For("de").T("testing_multiple", 2))
}

func TestRegionNames(t *testing.T) {
	b := Default()
	assert.Equal(t, "北アメリカ", b.For("ja").Region("north_america"))
	assert.Equal(t, "Oceania", b.For("en").Region("oceania"))
	assert.Equal(t, "mars", b.For("en").Region("mars"))
}

func TestEveryLanguageHasEveryMessage(t *testing.T) {
	b := Default()
	en := b.tables[Fallback]
	for _, lang := range b.Languages() {
		for key := range en.Messages {
			assert.Contains(t, b.tables[lang].Messages, key, "%s: %s", lang, key)
		}
		for key := range en.Regions {
			assert.Contains(t, b.tables[lang].Regions, key, "%s: %s", lang, key)
		}
	}
	assert.Equal(t, []string{"en", "ja", "zh"}, b.Languages())
}

func TestLoadRequiresFallback(t *testing.T) {
	_, err := Load([]byte(`{"zh": {"messages": {}}}`))
	assert.Error(t, err)

	_, err = Load([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locales.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"en": {"messages": {"hi": "Hello %s"}}}`), 0644))

	b, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hello Go", b.For("en").T("hi", "Go"))
}
