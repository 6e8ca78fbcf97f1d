package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

type memKV struct {
	data map[string]string
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func TestSaveLoadSettings(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	src := buildSession(t)
	settings := Settings{APIKey: "sk-123", Selection: provider.Selection{Provider: provider.XAI, Model: "grok-2-latest"}}

	require.NoError(t, SaveSettings(ctx, kv, src, provider.NewCatalog(), settings))
	assert.False(t, src.Dirty())
	assert.Equal(t, "sk-123", kv.data[APIKeyKey])
	assert.Contains(t, kv.data, SettingsKey)

	dst := session.New()
	got, warnings, found, err := LoadSettings(ctx, kv, dst, provider.NewCatalog())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, warnings)
	assert.Equal(t, settings, got)
	assert.Equal(t, src.SourceText(), dst.SourceText())
}

func TestSaveSettings_EmptyKeyRemovesStandaloneEntry(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data[APIKeyKey] = "stale"

	require.NoError(t, SaveSettings(ctx, kv, session.New(), nil, Settings{}))

	assert.NotContains(t, kv.data, APIKeyKey)
}

func TestLoadSettings_NothingSaved(t *testing.T) {
	kv := newMemKV()
	kv.data[APIKeyKey] = "only-key"
	s := buildSession(t)
	before := s.Snapshot()

	got, _, found, err := LoadSettings(context.Background(), kv, s, provider.NewCatalog())

	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "only-key", got.APIKey)
	assert.Zero(t, got.Selection)
	assert.Equal(t, before, s.Snapshot())
}

func TestLoadSettings_FallsBackToStandaloneKey(t *testing.T) {
	kv := newMemKV()
	kv.data[SettingsKey] = `{"characters": ["An"]}`
	kv.data[APIKeyKey] = "fallback"

	got, _, found, err := LoadSettings(context.Background(), kv, session.New(), nil)

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fallback", got.APIKey)
}

func TestLoadSettings_Errors(t *testing.T) {
	kv := newMemKV()
	kv.data[SettingsKey] = `{broken`
	_, _, _, err := LoadSettings(context.Background(), kv, session.New(), nil)
	var pe *PersistenceError
	assert.True(t, errors.As(err, &pe))

	kv.err = errors.New("connection refused")
	_, _, _, err = LoadSettings(context.Background(), kv, session.New(), nil)
	assert.ErrorIs(t, err, kv.err)
}

func TestClearSettings(t *testing.T) {
	kv := newMemKV()
	kv.data[SettingsKey] = "{}"
	kv.data[APIKeyKey] = "k"

	require.NoError(t, ClearSettings(context.Background(), kv))

	assert.Empty(t, kv.data)
}
