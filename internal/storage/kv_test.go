package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRead_MissingKeyReturnsDefault(t *testing.T) {
	kv := NewKV(NewMemoryBackend())

	got := Read(kv, "nope", []record{{Name: "default"}})
	assert.Equal(t, []record{{Name: "default"}}, got)

	assert.Equal(t, "", Read(kv, "nope", ""))
}

func TestRead_CorruptPayloadReturnsDefault(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set("records", `{not json`))
	require.NoError(t, backend.Set("wrong-shape", `{"name": 5}`))
	kv := NewKV(backend)

	assert.Equal(t, []record{}, Read(kv, "records", []record{}))
	assert.Equal(t, record{Name: "d"}, Read(kv, "wrong-shape", record{Name: "d"}))
}

func TestWrite_ThenReadRoundTrip(t *testing.T) {
	kv := NewKV(NewMemoryBackend())

	require.NoError(t, Write(kv, "records", []record{{Name: "a", Count: 1}}))
	assert.Equal(t, []record{{Name: "a", Count: 1}}, Read[[]record](kv, "records", nil))

	require.NoError(t, Write(kv, "records", []record{{Name: "b", Count: 2}}))
	assert.Equal(t, []record{{Name: "b", Count: 2}}, Read[[]record](kv, "records", nil))

	require.NoError(t, Write(kv, "current", "abc"))
	assert.Equal(t, "abc", Read(kv, "current", ""))
}

func TestWrite_UnserializableValue(t *testing.T) {
	kv := NewKV(NewMemoryBackend())
	err := Write(kv, "ch", make(chan int))
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestRemove(t *testing.T) {
	kv := NewKV(NewMemoryBackend())
	require.NoError(t, Write(kv, "k", 1))
	require.NoError(t, kv.Remove("k"))
	assert.Equal(t, 7, Read(kv, "k", 7))
}
