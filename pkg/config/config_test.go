package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronote/pkg/config"
	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/store"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    func(f *config.File)
		wantErr error
	}{
		{
			name:  "empty keeps defaults",
			input: "",
			want:  func(f *config.File) {},
		},
		{
			name:  "overrides",
			input: "store: setTimeoutByParts\nparts: 8\nwork: 500ms\noverhead: 10ms\ninstant_delay: 1s\naddr: \"127.0.0.1:9000\"\n",
			want: func(f *config.File) {
				f.Store = core.KindSetTimeoutByParts
				f.Parts = 8
				f.Work = 500 * time.Millisecond
				f.Overhead = 10 * time.Millisecond
				f.InstantDelay = time.Second
				f.Addr = "127.0.0.1:9000"
			},
		},
		{
			name:  "unknown store is kept",
			input: "store: webWorker\n",
			want:  func(f *config.File) { f.Store = "webWorker" },
		},
		{
			name:    "negative parts",
			input:   "parts: -2\n",
			wantErr: core.ErrInvalidParts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := config.Parse([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			want := config.Default()
			tt.want(&want)
			assert.Equal(t, want, got)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, input := range []string{
		"work: -1s\n",
		"work: soon\n",
		"colour: blue\n",
	} {
		_, err := config.Parse([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chronote.yaml")

	f := config.Default()
	f.Store = core.KindAwaitedPromise
	f.Work = 250 * time.Millisecond
	require.NoError(t, config.Save(path, f))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, f, got)
	assert.Equal(t, store.Simulator{Work: 250 * time.Millisecond, Overhead: store.DefaultOverhead}, got.Simulator())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestLoad_Missing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
