package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/bricks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Service {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "pipes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files, err := NewFiles(filepath.Join(t.TempDir(), "pipes"))
	require.NoError(t, err)

	return map[string]Service{
		"memory": NewMemory(),
		"sqlite": db,
		"files":  files,
	}
}

func samplePipe() *cryptii.PipeData {
	index := 1
	return &cryptii.PipeData{
		URL: "https://cryptii.com/pipes/caesar",
		Items: []cryptii.BrickData{
			{Name: bricks.TextViewerName},
			{Name: bricks.CaesarCipherName, Settings: map[string]any{"shift": 3}},
			{Name: bricks.TextViewerName, Title: "Ciphertext"},
		},
		Content:      json.RawMessage(`"khoor"`),
		ContentIndex: &index,
	}
}

func TestStoreAndLoad(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Store(ctx, samplePipe())
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, id)

			data, err := s.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "https://cryptii.com/pipes/caesar", data.URL)
			assert.JSONEq(t, `"khoor"`, string(data.Content))
			require.NotNil(t, data.ContentIndex)
			assert.Equal(t, 1, *data.ContentIndex)
			require.Len(t, data.Items, 3)
			assert.Equal(t, "Ciphertext", data.Items[2].Title)
			assert.EqualValues(t, 3, data.Items[1].Settings["shift"])
		})
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			records, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, records)

			first, err := s.Store(ctx, samplePipe())
			require.NoError(t, err)
			second, err := s.Store(ctx, &cryptii.PipeData{
				Items:   []cryptii.BrickData{{Name: bricks.BytesViewerName}},
				Content: json.RawMessage(`{"data":"3q2+7w==","padding":0}`),
			})
			require.NoError(t, err)

			records, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, records, 2)
			ids := []uuid.UUID{records[0].ID, records[1].ID}
			assert.ElementsMatch(t, []uuid.UUID{first, second}, ids)
			for _, r := range records {
				if r.ID == first {
					assert.Equal(t, []string{"text", "caesar-cipher", "text"}, r.Bricks)
					assert.Equal(t, "https://cryptii.com/pipes/caesar", r.URL)
				}
				assert.False(t, r.CreatedAt.IsZero())
			}

			require.NoError(t, s.Delete(ctx, first))
			assert.ErrorIs(t, s.Delete(ctx, first), ErrNotFound)
			_, err = s.Load(ctx, first)
			assert.ErrorIs(t, err, ErrNotFound)

			records, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, second, records[0].ID)
		})
	}
}

func TestStoreRejectsInvalidData(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Store(ctx, &cryptii.PipeData{Content: json.RawMessage(`"x"`)})
			assert.ErrorIs(t, err, cryptii.ErrInvalidPipeData)

			records, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestLoadUnknownID(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryCopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	data := samplePipe()
	id, err := s.Store(ctx, data)
	require.NoError(t, err)

	data.Items[1].Settings["shift"] = 9
	loaded, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Items[1].Settings["shift"])
}

func TestFilesSkipsForeignEntries(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFiles(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	_, err = s.Store(ctx, samplePipe())
	require.NoError(t, err)

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFilesDeterministicEncoding(t *testing.T) {
	a, err := encMode.Marshal(samplePipe())
	require.NoError(t, err)
	b, err := encMode.Marshal(samplePipe())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStoredPipeRestores(t *testing.T) {
	ctx := context.Background()
	factory := bricks.DefaultFactory()

	p := cryptii.New(cryptii.WithFactory(factory))
	defer p.Close()
	plain, cipher := bricks.NewTextViewer(), bricks.NewTextViewer()
	caesar := bricks.NewCaesarCipher()
	require.NoError(t, caesar.Settings().Extract(map[string]any{"shift": 3}))
	require.NoError(t, p.AddBricks(plain, caesar, cipher))
	require.NoError(t, cipher.EditText("khoor"))
	require.NoError(t, p.WaitIdle(ctx))

	data, err := p.Serialize()
	require.NoError(t, err)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Store(ctx, data)
			require.NoError(t, err)
			loaded, err := s.Load(ctx, id)
			require.NoError(t, err)

			q := cryptii.New(cryptii.WithFactory(factory))
			defer q.Close()
			require.NoError(t, q.Extract(loaded))
			out, err := q.Await(ctx, 0)
			require.NoError(t, err)
			text, err := out.Text()
			require.NoError(t, err)
			assert.Equal(t, "hello", text)
			assert.Equal(t, 1, q.SelectedBucket())
		})
	}
}

func TestOpen(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite", "files"} {
		t.Run(driver, func(t *testing.T) {
			s, closeFn, err := Open(driver, filepath.Join(t.TempDir(), "pipes"))
			require.NoError(t, err)
			defer closeFn()

			_, err = s.Store(context.Background(), samplePipe())
			assert.NoError(t, err)
		})
	}

	_, _, err := Open("redis", "")
	assert.ErrorContains(t, err, "redis")
}
